package myaudio

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	encodeBitDepth = 16
	pcmAudioFormat = 1
)

// EncodeWAV writes samples as 16-bit mono PCM WAV. Samples outside [-1, 1]
// are clipped.
func EncodeWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	enc := wav.NewEncoder(w, sampleRate, encodeBitDepth, 1, pcmAudioFormat)
	ints := make([]int, len(samples))
	for i, s := range samples {
		ints[i] = int(math.Round(max(-1, min(1, s)) * math.MaxInt16))
	}

	buf := &audio.IntBuffer{
		Data:           ints,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: encodeBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	return enc.Close()
}

// EncodeWAVBytes returns the WAV encoding of samples.
func EncodeWAVBytes(samples []float64, sampleRate int) ([]byte, error) {
	var sb seekableBuffer
	if err := EncodeWAV(&sb, samples, sampleRate); err != nil {
		return nil, err
	}
	return sb.Bytes(), nil
}

// seekableBuffer is an in-memory io.WriteSeeker; the WAV encoder seeks back
// to patch chunk sizes on Close.
type seekableBuffer struct {
	buf []byte
	pos int64
}

func (s *seekableBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		s.buf = append(s.buf, make([]byte, end-int64(len(s.buf)))...)
	}
	copy(s.buf[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	s.pos = abs
	return abs, nil
}

func (s *seekableBuffer) Bytes() []byte {
	return s.buf
}
