package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"time"
)

// Default frame counts used by the analysis features.
const (
	DefaultAnalysisFrames = 10 // general video analysis
	SchemaAnalysisFrames  = 15 // schema-constrained analysis
	StyleReferenceFrames  = 3  // style-reference extraction
)

// ErrInvalidMedia marks a video whose duration is not a finite positive
// number. No frames are captured in that case.
var ErrInvalidMedia = errors.New("media: invalid or unreadable video")

// VideoDecoder is the single shared rendering resource frames are sampled
// from. Implementations are not safe for concurrent seeks; the extractor
// issues them strictly sequentially.
type VideoDecoder interface {
	// Duration reports the total playable length of the video.
	Duration() time.Duration
	// SeekFrame positions the decoder at t and renders the frame there.
	SeekFrame(ctx context.Context, t time.Duration) (image.Image, error)
	// Close releases any temporary resources held by the decoder. It must be
	// called on both success and failure paths.
	Close() error
}

// ProgressFunc receives cumulative fractional progress in [0, 1] after each
// captured frame. The extractor does not own a full 0-100 scale; callers
// compose it with their own post-processing progress.
type ProgressFunc func(fraction float64)

// FrameExtractor deterministically samples N JPEG frames from a video,
// base64-encoded for downstream analysis or style-reference use.
type FrameExtractor struct {
	JPEGQuality int // defaults to 85 when zero
}

// Extract samples count frames at evenly spaced timestamps i*duration/count
// for i in [0, count). Capture is strictly sequential: each seek completes
// before the next is issued because the decoder is a shared single-instance
// resource. On any failure the whole operation is abandoned; on success the
// result holds exactly count frames in timestamp order.
func (e *FrameExtractor) Extract(ctx context.Context, dec VideoDecoder, count int, progress ProgressFunc) ([]string, error) {
	if dec == nil {
		return nil, fmt.Errorf("%w: no decoder", ErrInvalidMedia)
	}
	if count <= 0 {
		count = DefaultAnalysisFrames
	}

	duration := dec.Duration()
	if !finitePositive(duration) {
		return nil, fmt.Errorf("%w: duration %v is not a finite positive number", ErrInvalidMedia, duration)
	}

	quality := e.JPEGQuality
	if quality <= 0 {
		quality = 85
	}

	frames := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ts := time.Duration(int64(duration) * int64(i) / int64(count))
		img, err := dec.SeekFrame(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("seek frame %d at %v: %w", i, ts, err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", i, err)
		}
		frames = append(frames, EncodeBase64(buf.Bytes()))
		if progress != nil {
			progress(float64(i+1) / float64(count))
		}
	}
	return frames, nil
}

func finitePositive(d time.Duration) bool {
	secs := d.Seconds()
	return d > 0 && !math.IsInf(secs, 0) && !math.IsNaN(secs)
}
