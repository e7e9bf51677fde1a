package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router registers every endpoint. /metrics is added only when
// metricsEnabled is set.
func (h *Handlers) Router(metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler())
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/collages", h.CreateCollage).Methods(http.MethodPost)
	api.HandleFunc("/collages", h.ListCollages).Methods(http.MethodGet)
	api.HandleFunc("/collages/{id}", h.GetCollage).Methods(http.MethodGet)
	api.HandleFunc("/collages/{id}", h.CancelCollage).Methods(http.MethodDelete)
	api.HandleFunc("/history", h.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", h.GetHistoryRun).Methods(http.MethodGet)

	return r
}
