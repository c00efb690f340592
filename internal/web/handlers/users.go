package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kozaktomas/faceauth/internal/enrollment"
	"github.com/kozaktomas/faceauth/internal/facematch"
	"github.com/kozaktomas/faceauth/internal/verifier"
)

// UsersHandler handles enrollment and user management endpoints.
type UsersHandler struct {
	service *verifier.Service
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(svc *verifier.Service) *UsersHandler {
	return &UsersHandler{service: svc}
}

// List returns a summary of every user.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Store().ListUsers())
}

// Get returns the summary of one user.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	summary, ok := h.service.Store().Snapshot().Summary(userID)
	if !ok {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// AddSample enrolls the uploaded image for the user.
func (h *UsersHandler) AddSample(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)

	img, err := readImage(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var confidence *float64
	if s := r.FormValue("confidence"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "confidence must be a number")
			return
		}
		confidence = &v
	}

	res, err := h.service.Enroll(r.Context(), userID, img, confidence)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// Remove deletes the user and all samples.
func (h *UsersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	removed, err := h.service.Store().RemoveUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export returns the portable export document of the user.
func (h *UsersHandler) Export(w http.ResponseWriter, r *http.Request) {
	exp, err := h.service.Store().ExportUser(userIDParam(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, exp)
}

// Import adds a previously exported user. Existing users are replaced only with ?overwrite=true.
func (h *UsersHandler) Import(w http.ResponseWriter, r *http.Request) {
	var exp enrollment.UserExport
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&exp); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	exp.UserID = facematch.NormalizeUserID(exp.UserID)

	overwrite := parseBool(r.URL.Query().Get("overwrite"))
	if err := h.service.Store().ImportUser(r.Context(), &exp, overwrite); err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		respondError(w, status, err.Error())
		return
	}

	summary, _ := h.service.Store().Snapshot().Summary(exp.UserID)
	respondJSON(w, http.StatusCreated, summary)
}
