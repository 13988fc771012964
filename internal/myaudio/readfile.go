package myaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jingnanl/infant-guard/internal/errors"
)

// Clip is a decoded mono recording.
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Audio container formats understood by Decode.
const (
	FormatWAV  = "wav"
	FormatFLAC = "flac"
)

// DetectFormat identifies the container from its magic bytes.
func DetectFormat(header []byte) (string, error) {
	switch {
	case len(header) >= 12 && bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV, nil
	case len(header) >= 4 && bytes.Equal(header[:4], []byte("fLaC")):
		return FormatFLAC, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ReadAudioFile decodes a WAV or FLAC file.
func ReadAudioFile(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("operation", "open-audio-file").
			Context("extension", strings.ToLower(filepath.Ext(path))).
			Build()
	}
	defer f.Close()

	return Decode(f)
}

// Decode sniffs the container format of r and decodes it.
func Decode(r io.ReadSeeker) (Clip, error) {
	header := make([]byte, 12)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Clip{}, decodeError(fmt.Errorf("reading header: %w", err), "unknown")
	}
	format, err := DetectFormat(header[:n])
	if err != nil {
		return Clip{}, decodeError(err, "unknown")
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Clip{}, decodeError(err, format)
	}

	var clip Clip
	switch format {
	case FormatWAV:
		clip, err = decodeWAV(r)
	default:
		clip, err = decodeFLAC(r)
	}
	if err != nil {
		return Clip{}, decodeError(err, format)
	}
	if len(clip.Samples) == 0 {
		return Clip{}, decodeError(ErrEmptyAudio, format)
	}
	return clip, nil
}

// SamplesFromPCM16 converts little-endian signed 16-bit mono PCM to floats.
// A trailing odd byte is ignored.
func SamplesFromPCM16(pcm []byte) []float64 {
	out := make([]float64, len(pcm)/2)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768.0
	}
	return out
}

// getAudioDivisor returns the full-scale value for a signed PCM bit depth.
func getAudioDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 8:
		return 128.0, nil
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported audio bit depth: %d", bitDepth)
	}
}

// mixdown averages interleaved channels into mono.
func mixdown(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for ch := range channels {
			sum += interleaved[i*channels+ch]
		}
		out[i] = sum / float64(channels)
	}
	return out
}
