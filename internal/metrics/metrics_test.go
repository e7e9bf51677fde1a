package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"RunsTotal", RunsTotal},
		{"RunsInProgress", RunsInProgress},
		{"RunDuration", RunDuration},
		{"StageDuration", StageDuration},
		{"RunFailures", RunFailures},
		{"ImagesLoadedTotal", ImagesLoadedTotal},
		{"ImageDecodeByFormat", ImageDecodeByFormat},
		{"ImageLoadDuration", ImageLoadDuration},
		{"VipsFallbackTotal", VipsFallbackTotal},
		{"DuplicatesRemovedTotal", DuplicatesRemovedTotal},
		{"DispatcherWorkers", DispatcherWorkers},
		{"CanvasPixels", CanvasPixels},
		{"PasteDegradedTotal", PasteDegradedTotal},
		{"CollageBytesWritten", CollageBytesWritten},
		{"HistoryRuns", HistoryRuns},
		{"MemoryUsageRatio", MemoryUsageRatio},
		{"FilesystemRetryAttempts", FilesystemRetryAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	if got := testutil.CollectAndCount(RunsTotal); got != 3 {
		t.Errorf("RunsTotal series = %d, want 3", got)
	}
	if got := testutil.CollectAndCount(StageDuration); got != 5 {
		t.Errorf("StageDuration series = %d, want 5", got)
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()

	before := testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("stat"))
	obs.ObserveStaleError("stat")
	obs.ObserveRetryAttempt("stat")
	obs.ObserveRetrySuccess("stat")
	obs.ObserveRetryFailure("stat")
	obs.ObserveRetryDuration("stat", 0.01)

	if got := testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("stat")); got != before+1 {
		t.Errorf("stale errors = %v, want %v", got, before+1)
	}
}

type fakeStats struct {
	counts map[string]int
	err    error
}

func (f fakeStats) CountByStatus(context.Context) (map[string]int, error) {
	return f.counts, f.err
}

func TestCollectorCollect(t *testing.T) {
	c := NewCollector(fakeStats{counts: map[string]int{"success": 7, "failed": 2}}, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(HistoryRuns.WithLabelValues("success")); got != 7 {
		t.Errorf("history success gauge = %v, want 7", got)
	}
	if got := testutil.ToFloat64(HistoryRuns.WithLabelValues("failed")); got != 2 {
		t.Errorf("history failed gauge = %v, want 2", got)
	}
}

func TestCollectorCollectErrorKeepsGauges(t *testing.T) {
	HistoryRuns.WithLabelValues("stopped").Set(4)

	c := NewCollector(fakeStats{err: errors.New("db closed")}, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(HistoryRuns.WithLabelValues("stopped")); got != 4 {
		t.Errorf("history stopped gauge = %v, want 4 (unchanged)", got)
	}
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector(nil, 10*time.Millisecond)
	c.Start()
	time.Sleep(25 * time.Millisecond)
	c.Stop()
}
