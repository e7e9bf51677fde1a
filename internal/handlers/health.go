package handlers

import (
	"net/http"
	"runtime"
	"time"

	"image-collage/internal/media"
	"image-collage/internal/startup"
)

const statusHealthy = "healthy"

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	RunningJobs    int  `json:"runningJobs"`
	HistoryEnabled bool `json:"historyEnabled"`
	VipsAvailable  bool `json:"vipsAvailable"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	GOMAXPROCS   int    `json:"gomaxprocs"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:         statusHealthy,
		Version:        startup.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		RunningJobs:    h.Running(),
		HistoryEnabled: h.history != nil,
		VipsAvailable:  media.IsVipsAvailable(),
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		GOMAXPROCS:     runtime.GOMAXPROCS(0),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}
