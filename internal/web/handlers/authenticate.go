package handlers

import (
	"net/http"
	"strconv"

	"github.com/kozaktomas/faceauth/internal/constants"
	"github.com/kozaktomas/faceauth/internal/facematch"
	"github.com/kozaktomas/faceauth/internal/verifier"
)

// AuthenticateHandler handles identification endpoints.
type AuthenticateHandler struct {
	service *verifier.Service
}

// NewAuthenticateHandler creates a new authenticate handler.
func NewAuthenticateHandler(svc *verifier.Service) *AuthenticateHandler {
	return &AuthenticateHandler{service: svc}
}

// Authenticate identifies the uploaded face. The response carries the
// decision whether or not it was accepted.
func (h *AuthenticateHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	decision, err := h.service.Authenticate(r.Context(), img)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

// SearchResponse lists the nearest enrolled samples.
type SearchResponse struct {
	K          int                   `json:"k"`
	Candidates []facematch.Candidate `json:"candidates"`
}

// Search returns the nearest enrolled samples to the uploaded face.
func (h *AuthenticateHandler) Search(w http.ResponseWriter, r *http.Request) {
	k := constants.DefaultSearchLimit
	if s := r.URL.Query().Get("k"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || v > 100 {
			respondError(w, http.StatusBadRequest, "k must be between 1 and 100")
			return
		}
		k = v
	}

	img, err := readImage(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	candidates, err := h.service.Candidates(r.Context(), img, k)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SearchResponse{K: k, Candidates: candidates})
}
