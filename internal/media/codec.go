package media

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// Codec utilities: pure, stateless transformations between encoded and raw
// audio representations. Same input always yields the same output; no hidden
// state; no I/O.

// DecodeBase64 decodes a standard base64 string into raw bytes.
func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return b, nil
}

// EncodeBase64 is the inverse of DecodeBase64.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// FloatToPCM16 converts normalized floating-point samples in [-1, 1] to
// signed 16-bit little-endian PCM by linear scaling. Values are not clamped:
// out-of-range input wraps around on the int16 conversion, so callers must
// ensure their samples are properly normalized.
func FloatToPCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(s*32768)))
	}
	return out
}

// PCM16ToFloat reconstructs normalized floating-point samples in [-1, 1) from
// raw little-endian 16-bit PCM.
func PCM16ToFloat(pcm []byte) ([]float64, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("pcm payload has odd length")
	}
	out := make([]float64, len(pcm)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float64(v) / 32768
	}
	return out, nil
}

const wavHeaderSize = 44

// WAVContainer wraps raw 16-bit PCM bytes in a minimal WAV container: a
// canonical 44-byte header (RIFF chunk, "fmt " sub-chunk declaring PCM with
// the given channel count and sample rate at bit depth 16, "data" sub-chunk)
// followed by the payload. The result is playable without a dedicated decoder.
func WAVContainer(pcm []byte, sampleRate, channels int) []byte {
	bitsPerSample := 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := make([]byte, wavHeaderSize+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt sub-chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[wavHeaderSize:], pcm)
	return buf
}

// WAVFormat describes the audio layout declared by a WAV header.
type WAVFormat struct {
	SampleRate int
	Channels   int
}

// ParseWAV validates a minimal PCM WAV container and returns its raw payload
// and declared format. Only the canonical 44-byte layout written by
// WAVContainer is accepted.
func ParseWAV(b []byte) ([]byte, WAVFormat, error) {
	if len(b) < wavHeaderSize {
		return nil, WAVFormat{}, errors.New("wav container too short")
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, WAVFormat{}, errors.New("not a RIFF/WAVE container")
	}
	if string(b[12:16]) != "fmt " {
		return nil, WAVFormat{}, errors.New("missing fmt sub-chunk")
	}
	if format := binary.LittleEndian.Uint16(b[20:22]); format != 1 {
		return nil, WAVFormat{}, fmt.Errorf("unsupported wav format %d, want PCM", format)
	}
	if bits := binary.LittleEndian.Uint16(b[34:36]); bits != 16 {
		return nil, WAVFormat{}, fmt.Errorf("unsupported bit depth %d, want 16", bits)
	}
	if string(b[36:40]) != "data" {
		return nil, WAVFormat{}, errors.New("missing data sub-chunk")
	}
	size := binary.LittleEndian.Uint32(b[40:44])
	if int(size) > len(b)-wavHeaderSize {
		return nil, WAVFormat{}, errors.New("data sub-chunk size exceeds payload")
	}
	fmtInfo := WAVFormat{
		SampleRate: int(binary.LittleEndian.Uint32(b[24:28])),
		Channels:   int(binary.LittleEndian.Uint16(b[22:24])),
	}
	return b[wavHeaderSize : wavHeaderSize+int(size)], fmtInfo, nil
}
