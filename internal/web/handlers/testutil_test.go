package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceauth/internal/database/mock"
	"github.com/kozaktomas/faceauth/internal/enrollment"
	"github.com/kozaktomas/faceauth/internal/features"
	"github.com/kozaktomas/faceauth/internal/imaging"
	"github.com/kozaktomas/faceauth/internal/verifier"
)

var testSettings = enrollment.Settings{AccuracyThreshold: 0.85, MinSamplesPerUser: 3, MaxSamplesPerUser: 10}

// testService creates a service backed by an in-memory persister
func testService(t *testing.T) (*verifier.Service, *mock.MockPersister) {
	t.Helper()
	p := mock.NewMockPersister()
	pre, err := imaging.NewPreprocessor(imaging.DefaultOptions())
	if err != nil {
		t.Fatalf("NewPreprocessor failed: %v", err)
	}
	ext, err := features.NewExtractor(features.DefaultOptions())
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	store, err := enrollment.Open(context.Background(), p, testSettings)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return verifier.NewService(pre, ext, store), p
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// testPNG encodes a textured test frame
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetGray(x, y, color.Gray{Y: uint8((x*3 + y*5) % 256)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a multipart request with an "image" file and extra fields
func multipartRequest(t *testing.T, method, path string, imageData []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if imageData != nil {
		fw, err := mw.CreateFormFile("image", "face.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(imageData)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
