package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"
)

// fakeDecoder records the seeks issued against it and renders a tiny solid
// frame for each one.
type fakeDecoder struct {
	duration time.Duration
	seeks    []time.Duration
	seeking  bool
	overlap  bool
	failAt   int
	closed   bool
}

func (d *fakeDecoder) Duration() time.Duration { return d.duration }

func (d *fakeDecoder) SeekFrame(ctx context.Context, t time.Duration) (image.Image, error) {
	if d.seeking {
		d.overlap = true
	}
	d.seeking = true
	defer func() { d.seeking = false }()

	if d.failAt > 0 && len(d.seeks) == d.failAt {
		return nil, errors.New("render failed")
	}
	d.seeks = append(d.seeks, t)

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img, nil
}

func (d *fakeDecoder) Close() error {
	d.closed = true
	return nil
}

func TestExtractFrameCountAndSpacing(t *testing.T) {
	dec := &fakeDecoder{duration: 10 * time.Second}
	extractor := &FrameExtractor{}

	frames, err := extractor.Extract(context.Background(), dec, 5, nil)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("got %d frames, want 5", len(frames))
	}
	if len(dec.seeks) != 5 {
		t.Fatalf("got %d seeks, want 5", len(dec.seeks))
	}
	for i, ts := range dec.seeks {
		want := time.Duration(int64(10*time.Second) * int64(i) / 5)
		if ts != want {
			t.Errorf("seek %d at %v, want %v", i, ts, want)
		}
		if i > 0 && ts <= dec.seeks[i-1] {
			t.Errorf("seek %d timestamp %v not after %v", i, ts, dec.seeks[i-1])
		}
	}
	if dec.overlap {
		t.Error("seeks overlapped; capture must be strictly sequential")
	}
	for i, f := range frames {
		raw, err := DecodeBase64(f)
		if err != nil {
			t.Fatalf("frame %d is not valid base64: %v", i, err)
		}
		if len(raw) < 2 || raw[0] != 0xFF || raw[1] != 0xD8 {
			t.Errorf("frame %d does not start with a JPEG SOI marker", i)
		}
	}
}

func TestExtractInvalidDuration(t *testing.T) {
	for _, dur := range []time.Duration{0, -time.Second} {
		dec := &fakeDecoder{duration: dur}
		_, err := (&FrameExtractor{}).Extract(context.Background(), dec, 4, nil)
		if !errors.Is(err, ErrInvalidMedia) {
			t.Errorf("duration %v: got %v, want ErrInvalidMedia", dur, err)
		}
		if len(dec.seeks) != 0 {
			t.Errorf("duration %v: %d frames captured, want none", dur, len(dec.seeks))
		}
	}
}

func TestExtractNilDecoder(t *testing.T) {
	if _, err := (&FrameExtractor{}).Extract(context.Background(), nil, 4, nil); !errors.Is(err, ErrInvalidMedia) {
		t.Errorf("got %v, want ErrInvalidMedia", err)
	}
}

func TestExtractSeekFailureAbandonsRun(t *testing.T) {
	dec := &fakeDecoder{duration: 8 * time.Second, failAt: 2}
	frames, err := (&FrameExtractor{}).Extract(context.Background(), dec, 4, nil)
	if err == nil {
		t.Fatal("expected error from failing seek")
	}
	if frames != nil {
		t.Errorf("got %d partial frames, want none", len(frames))
	}
}

func TestExtractDefaultsCountWhenZero(t *testing.T) {
	dec := &fakeDecoder{duration: 20 * time.Second}
	frames, err := (&FrameExtractor{}).Extract(context.Background(), dec, 0, nil)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(frames) != DefaultAnalysisFrames {
		t.Errorf("got %d frames, want %d", len(frames), DefaultAnalysisFrames)
	}
}

func TestExtractProgressReachesOne(t *testing.T) {
	dec := &fakeDecoder{duration: 3 * time.Second}
	var reported []float64
	_, err := (&FrameExtractor{}).Extract(context.Background(), dec, 3, func(fraction float64) {
		reported = append(reported, fraction)
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(reported) != 3 {
		t.Fatalf("got %d progress reports, want 3", len(reported))
	}
	for i := 1; i < len(reported); i++ {
		if reported[i] <= reported[i-1] {
			t.Errorf("progress not monotonic: %v", reported)
		}
	}
	if reported[len(reported)-1] != 1 {
		t.Errorf("final progress = %f, want 1", reported[len(reported)-1])
	}
}

func TestExtractCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dec := &fakeDecoder{duration: 5 * time.Second}
	if _, err := (&FrameExtractor{}).Extract(ctx, dec, 3, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
