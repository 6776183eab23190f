package faceengine

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectFaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		json.NewEncoder(w).Encode(FaceResponse{
			FacesCount: 2,
			Faces: []FaceDetection{
				{FaceIndex: 0, Dim: 4, Embedding: []float32{1, 0, 0, 0}, DetScore: 0.72},
				{FaceIndex: 1, Dim: 4, Embedding: []float32{0, 1, 0, 0}, DetScore: 0.95},
			},
			Model: "buffalo_l",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.DetectFaces(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0})
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}
	if resp.FacesCount != 2 || len(resp.Faces) != 2 {
		t.Fatalf("expected 2 faces, got %+v", resp)
	}
}

func TestDetectFacesNoFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(FaceResponse{FacesCount: 0, Faces: nil})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.DetectFaces(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0})
	if err != nil {
		t.Fatalf("an empty result is not an error: %v", err)
	}
	if resp.FacesCount != 0 {
		t.Errorf("expected 0 faces, got %d", resp.FacesCount)
	}
}

func TestDetectFacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.DetectFaces(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0}); err == nil {
		t.Fatal("expected error on server failure")
	}
}

func TestMostConfident(t *testing.T) {
	faces := []FaceDetection{
		{FaceIndex: 0, DetScore: 0.60},
		{FaceIndex: 1, DetScore: 0.92},
		{FaceIndex: 2, DetScore: 0.85},
	}
	best := MostConfident(faces)
	if best == nil || best.FaceIndex != 1 {
		t.Errorf("expected face 1 with highest score, got %+v", best)
	}

	if MostConfident(nil) != nil {
		t.Error("expected nil for empty detections")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0, 0}, "image/gif"},
		{"too short", []byte{0xFF}, "application/octet-stream"},
		{"unknown", []byte{0, 1, 2, 3, 4, 5, 6, 7}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("detectMIMEType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestPrepareCapturePassthrough(t *testing.T) {
	data := testJPEG(t, 640, 480)
	out, err := PrepareCapture(data)
	if err != nil {
		t.Fatalf("PrepareCapture failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("small images should pass through unchanged")
	}
}

func TestPrepareCaptureDownscales(t *testing.T) {
	data := testJPEG(t, 3000, 2000)
	out, err := PrepareCapture(data)
	if err != nil {
		t.Fatalf("PrepareCapture failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to decode resized image: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 1280 {
		t.Errorf("expected width 1280, got %d", bounds.Dx())
	}
	if bounds.Dy() != 853 {
		t.Errorf("expected aspect-preserving height 853, got %d", bounds.Dy())
	}
}

func TestPrepareCaptureRejectsGarbage(t *testing.T) {
	if _, err := PrepareCapture([]byte("not an image")); err == nil {
		t.Fatal("expected decode error for non-image data")
	}
}
