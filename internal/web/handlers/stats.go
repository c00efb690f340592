package handlers

import (
	"net/http"

	"github.com/kozaktomas/faceauth/internal/enrollment"
	"github.com/kozaktomas/faceauth/internal/verifier"
)

// StatsHandler handles store statistics and maintenance.
type StatsHandler struct {
	service *verifier.Service
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(svc *verifier.Service) *StatsHandler {
	return &StatsHandler{service: svc}
}

// StatsResponse describes the store and its settings.
type StatsResponse struct {
	enrollment.Stats
	AccuracyThreshold float64 `json:"accuracy_threshold"`
	MinSamplesPerUser int     `json:"min_samples_per_user"`
	MaxSamplesPerUser int     `json:"max_samples_per_user"`
	DescriptorLength  int     `json:"descriptor_length"`
}

// Get returns store statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	store := h.service.Store()
	settings := store.Settings()
	respondJSON(w, http.StatusOK, StatsResponse{
		Stats:             store.Stats(),
		AccuracyThreshold: settings.AccuracyThreshold,
		MinSamplesPerUser: settings.MinSamplesPerUser,
		MaxSamplesPerUser: settings.MaxSamplesPerUser,
		DescriptorLength:  h.service.DescriptorLength(),
	})
}

// Optimize truncates every profile to the sample cap.
func (h *StatsHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.Store().Optimize(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
