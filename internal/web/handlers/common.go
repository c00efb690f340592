package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceauth/internal/constants"
	"github.com/kozaktomas/faceauth/internal/enrollment"
	"github.com/kozaktomas/faceauth/internal/facematch"
	"github.com/kozaktomas/faceauth/internal/imaging"
	"github.com/kozaktomas/faceauth/internal/verifier"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, imaging.ErrInvalidImage),
		errors.Is(err, imaging.ErrInvalidRegion),
		errors.Is(err, enrollment.ErrInvalidUserID),
		errors.Is(err, enrollment.ErrInvalidSample):
		return http.StatusBadRequest
	case errors.Is(err, enrollment.ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, enrollment.ErrUserExists),
		errors.Is(err, verifier.ErrNoEnrolledUsers):
		return http.StatusConflict
	case errors.Is(err, verifier.ErrLowConfidenceSample):
		return http.StatusUnprocessableEntity
	case errors.Is(err, enrollment.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError sends err with the status matching its kind.
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, errorStatus(err), err.Error())
}

// userIDParam returns the normalized {id} route parameter.
func userIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return facematch.NormalizeUserID(raw)
}

// readImage decodes the multipart "image" field into a grayscale frame.
func readImage(r *http.Request) (*image.Gray, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, fmt.Errorf("%w: failed to parse multipart form", imaging.ErrInvalidImage)
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("%w: image field is required", imaging.ErrInvalidImage)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read upload", imaging.ErrInvalidImage)
	}
	if len(data) > constants.MaxUploadSize {
		return nil, fmt.Errorf("%w: upload exceeds %d bytes", imaging.ErrInvalidImage, constants.MaxUploadSize)
	}
	return imaging.Decode(data)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
