package metrics

import (
	"context"
	"time"

	"image-collage/internal/logging"
)

// StatsProvider reports how many recorded runs ended in each status.
type StatsProvider interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// Collector periodically copies history totals into gauges
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := c.statsProvider.CountByStatus(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	for status, n := range counts {
		HistoryRuns.WithLabelValues(status).Set(float64(n))
	}

	logging.Debug("Metrics collected: %v", counts)
}
