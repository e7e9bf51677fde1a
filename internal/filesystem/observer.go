package filesystem

// Observer records filesystem retry metrics. The implementation lives in the
// metrics package so that filesystem does not import it.
//
// op is the retried operation: "stat", "open" or "mkdir".
type Observer interface {
	ObserveRetryAttempt(op string)
	ObserveRetrySuccess(op string)
	ObserveRetryFailure(op string)
	ObserveRetryDuration(op string, durationSeconds float64)
	ObserveStaleError(op string)
}

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is silently skipped (safe for tests).
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
