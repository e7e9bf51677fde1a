package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"image-collage/internal/history"
	"image-collage/internal/logging"

	"github.com/gorilla/mux"
)

// maxHistoryLimit caps the limit query parameter.
const maxHistoryLimit = 500

// GetHistory lists recorded runs, newest first.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "History is disabled (set DATABASE_DIR to enable)", http.StatusServiceUnavailable)
		return
	}

	limit := history.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		logging.Error("failed to list history: %v", err)
		writeJSONError(w, "Failed to get history", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, runs)
}

// GetHistoryRun returns one recorded run.
func (h *Handlers) GetHistoryRun(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "History is disabled (set DATABASE_DIR to enable)", http.StatusServiceUnavailable)
		return
	}

	run, err := h.history.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, history.ErrNotFound) {
		writeJSONError(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get run: %v", err)
		writeJSONError(w, "Failed to get run", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, run)
}
