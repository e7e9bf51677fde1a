// Package memory keeps decoded image data from outrunning the heap.
//
// ConfigureFromEnv derives GOMEMLIMIT from a container limit (MEMORY_LIMIT,
// MEMORY_RATIO) when GOMEMLIMIT itself is not set. Monitor samples heap usage
// against that limit; once usage crosses CriticalWaterMark it pauses, and the
// dispatcher blocks in WaitIfPaused before scheduling the next image until
// usage falls back under HighWaterMark.
package memory
