package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func encodeTestJPEG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func mjpegStream(t *testing.T, count int) []byte {
	t.Helper()
	var stream bytes.Buffer
	for i := 0; i < count; i++ {
		stream.Write(encodeTestJPEG(t, uint8(i*40)))
	}
	return stream.Bytes()
}

func TestMJPEGDecoderSplitsFrames(t *testing.T) {
	dec, err := NewMJPEGDecoder(bytes.NewReader(mjpegStream(t, 6)), 2)
	if err != nil {
		t.Fatalf("NewMJPEGDecoder returned error: %v", err)
	}
	defer dec.Close()

	if dec.FrameCount() != 6 {
		t.Errorf("frame count = %d, want 6", dec.FrameCount())
	}
	if dec.Duration() != 3*time.Second {
		t.Errorf("duration = %v, want 3s", dec.Duration())
	}
}

func TestMJPEGDecoderRejectsEmptyStream(t *testing.T) {
	_, err := NewMJPEGDecoder(bytes.NewReader([]byte("no jpegs here")), 30)
	if !errors.Is(err, ErrInvalidMedia) {
		t.Errorf("got %v, want ErrInvalidMedia", err)
	}
}

func TestMJPEGDecoderSeek(t *testing.T) {
	dec, err := NewMJPEGDecoder(bytes.NewReader(mjpegStream(t, 4)), 1)
	if err != nil {
		t.Fatalf("NewMJPEGDecoder returned error: %v", err)
	}
	defer dec.Close()

	img, err := dec.SeekFrame(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("SeekFrame returned error: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Errorf("frame bounds = %v, want 4x4", img.Bounds())
	}

	if _, err := dec.SeekFrame(context.Background(), 10*time.Second); err == nil {
		t.Error("expected error for seek past the end")
	}
	if _, err := dec.SeekFrame(context.Background(), -time.Second); err == nil {
		t.Error("expected error for negative seek")
	}
}

func TestMJPEGDecoderFeedsExtractor(t *testing.T) {
	dec, err := NewMJPEGDecoder(bytes.NewReader(mjpegStream(t, 10)), 5)
	if err != nil {
		t.Fatalf("NewMJPEGDecoder returned error: %v", err)
	}
	defer dec.Close()

	frames, err := (&FrameExtractor{}).Extract(context.Background(), dec, 4, nil)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(frames) != 4 {
		t.Errorf("got %d frames, want 4", len(frames))
	}
}

func TestOpenMJPEGURL(t *testing.T) {
	stream := mjpegStream(t, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(stream)
	}))
	defer srv.Close()

	dec, err := OpenMJPEGURL(context.Background(), srv.Client(), srv.URL, 3)
	if err != nil {
		t.Fatalf("OpenMJPEGURL returned error: %v", err)
	}
	if dec.FrameCount() != 3 {
		t.Errorf("frame count = %d, want 3", dec.FrameCount())
	}
	if err := dec.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
	if err := dec.Close(); err != nil {
		t.Errorf("second Close returned error: %v", err)
	}
}

func TestOpenMJPEGURLForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := OpenMJPEGURL(context.Background(), srv.Client(), srv.URL, 30)
	if !errors.Is(err, ErrInvalidMedia) {
		t.Fatalf("got %v, want ErrInvalidMedia", err)
	}
	if !bytes.Contains([]byte(err.Error()), []byte("cross-origin")) {
		t.Errorf("error should mention the likely cross-origin cause, got: %v", err)
	}
}
