package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"time"
)

// MJPEGDecoder decodes motion-JPEG streams (concatenated JPEG images) into
// seekable frames. It is the concrete VideoDecoder used for uploaded clips;
// anything else must be transcoded before it reaches the extractor.
type MJPEGDecoder struct {
	frames  [][]byte
	fps     float64
	cleanup func() error
}

// NewMJPEGDecoder scans r for JPEG frames. fps declares the capture rate the
// stream was recorded at and determines the reported duration.
func NewMJPEGDecoder(r io.Reader, fps float64) (*MJPEGDecoder, error) {
	if fps <= 0 {
		fps = 30
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read stream: %v", ErrInvalidMedia, err)
	}
	frames := splitJPEGFrames(data)
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no JPEG frames found in stream", ErrInvalidMedia)
	}
	return &MJPEGDecoder{frames: frames, fps: fps}, nil
}

// OpenMJPEGURL fetches a remote motion-JPEG clip and wraps it in a decoder.
// The response is spooled to a temporary file which is released when the
// decoder is closed, on success and failure paths alike.
func OpenMJPEGURL(ctx context.Context, client *http.Client, url string, fps float64) (*MJPEGDecoder, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrInvalidMedia, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch video: %v", ErrInvalidMedia, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Most likely the host refuses cross-origin reads; tell the user so
		// they can try a direct upload instead.
		return nil, fmt.Errorf("%w: the video host refused the read (status %d); this is usually a cross-origin restriction, try uploading the file directly", ErrInvalidMedia, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("%w: fetch video: status %d", ErrInvalidMedia, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "nexaneuron-clip-*")
	if err != nil {
		return nil, fmt.Errorf("%w: spool video: %v", ErrInvalidMedia, err)
	}
	release := func() error {
		tmp.Close()
		return os.Remove(tmp.Name())
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		release()
		return nil, fmt.Errorf("%w: spool video: %v", ErrInvalidMedia, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		release()
		return nil, fmt.Errorf("%w: spool video: %v", ErrInvalidMedia, err)
	}

	dec, err := NewMJPEGDecoder(tmp, fps)
	if err != nil {
		release()
		return nil, err
	}
	dec.cleanup = release
	return dec, nil
}

// Duration reports frame count over the declared capture rate.
func (d *MJPEGDecoder) Duration() time.Duration {
	return time.Duration(float64(len(d.frames)) / d.fps * float64(time.Second))
}

// FrameCount reports the number of frames found in the stream.
func (d *MJPEGDecoder) FrameCount() int {
	return len(d.frames)
}

// SeekFrame renders the frame at t.
func (d *MJPEGDecoder) SeekFrame(ctx context.Context, t time.Duration) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t < 0 || t >= d.Duration() {
		return nil, fmt.Errorf("seek %v outside [0, %v)", t, d.Duration())
	}
	idx := int(t.Seconds() * d.fps)
	if idx >= len(d.frames) {
		idx = len(d.frames) - 1
	}
	img, err := jpeg.Decode(bytes.NewReader(d.frames[idx]))
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", idx, err)
	}
	return img, nil
}

// Close releases the spooled temporary file, if any. Safe to call more than
// once.
func (d *MJPEGDecoder) Close() error {
	if d.cleanup == nil {
		return nil
	}
	release := d.cleanup
	d.cleanup = nil
	return release()
}

var (
	jpegSOI = []byte{0xFF, 0xD8, 0xFF}
	jpegEOI = []byte{0xFF, 0xD9}
)

// splitJPEGFrames scans a byte stream for SOI..EOI delimited JPEG images.
func splitJPEGFrames(data []byte) [][]byte {
	var frames [][]byte
	for {
		start := bytes.Index(data, jpegSOI)
		if start < 0 {
			break
		}
		end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
		if end < 0 {
			break
		}
		end += start + len(jpegSOI) + len(jpegEOI)
		frames = append(frames, data[start:end])
		data = data[end:]
	}
	return frames
}

var _ VideoDecoder = (*MJPEGDecoder)(nil)
