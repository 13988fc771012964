package myaudio

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

func decodeWAV(r io.ReadSeeker) (Clip, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return Clip{}, errors.New("invalid WAV file format")
	}
	if decoder.NumChans == 0 {
		return Clip{}, fmt.Errorf("unsupported number of channels: %d", decoder.NumChans)
	}

	bitDepth := int(decoder.BitDepth)
	divisor, err := getAudioDivisor(bitDepth)
	if err != nil {
		return Clip{}, err
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("reading PCM data: %w", err)
	}

	interleaved := make([]float64, len(buf.Data))
	for i, s := range buf.Data {
		// 8-bit WAV is unsigned
		if bitDepth == 8 {
			s -= 128
		}
		interleaved[i] = float64(s) / divisor
	}

	return Clip{
		Samples:    mixdown(interleaved, int(decoder.NumChans)),
		SampleRate: int(decoder.SampleRate),
	}, nil
}
