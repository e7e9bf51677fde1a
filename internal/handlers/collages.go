package handlers

import (
	"encoding/json"
	"net/http"

	"image-collage/internal/logging"
	"image-collage/internal/mediatypes"
	"image-collage/internal/pipeline"

	"github.com/gorilla/mux"
)

// maxRequestBody caps the JSON body of a collage request.
const maxRequestBody = 4 << 20

// CreateCollageResponse is returned when a job is accepted.
type CreateCollageResponse struct {
	pipeline.State
	Skipped []string `json:"skipped,omitempty"`
}

// CreateCollage starts a job and returns immediately with its ID.
func (h *Handlers) CreateCollage(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Paths) == 0 {
		writeJSONError(w, "Paths array is required", http.StatusBadRequest)
		return
	}

	kept, skipped := mediatypes.FilterSupported(req.Paths)
	if len(kept) == 0 {
		writeJSONError(w, "No supported image files in request", http.StatusBadRequest)
		return
	}
	if len(skipped) > 0 {
		logging.Warn("Skipping %d unsupported files in collage request", len(skipped))
	}
	req.Paths = kept

	job := h.runner.Start(h.baseCtx, req, nil)
	h.track(job)
	logging.Debug("Accepted collage job %s with %d images", job.ID, len(kept))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/api/collages/"+job.ID)
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, CreateCollageResponse{State: job.State(), Skipped: skipped})
}

// ListCollages returns tracked jobs, newest first.
func (h *Handlers) ListCollages(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.snapshot())
}

// GetCollage returns the progress or outcome of one job.
func (h *Handlers) GetCollage(w http.ResponseWriter, r *http.Request) {
	job, ok := h.job(mux.Vars(r)["id"])
	if !ok {
		writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, job.State())
}

// CancelCollage stops a job. Cancelling a finished or already cancelled job
// is not an error.
func (h *Handlers) CancelCollage(w http.ResponseWriter, r *http.Request) {
	job, ok := h.job(mux.Vars(r)["id"])
	if !ok {
		writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}

	job.Cancel()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, job.State())
}
