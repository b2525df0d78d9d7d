package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/go-visit-counter/pkg/ports"
)

type HTTPHandler struct {
	service ports.VisitService
}

func NewHTTPHandler(service ports.VisitService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Record a visit and return the visitor's rank
func (h *HTTPHandler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)

	result, err := h.service.RecordVisit(r.Context(), ip, r.UserAgent())
	if err != nil {
		log.Error().Err(err).Str("ip", ip).Str("request_id", RequestIDFrom(r.Context())).Msg("failed to record visit")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to record visit"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Get total count and the 7-day chart
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		log.Error().Err(err).Str("request_id", RequestIDFrom(r.Context())).Msg("failed to get stats")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to get stats"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		log.Warn().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}
