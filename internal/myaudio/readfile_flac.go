package myaudio

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/tphakala/flac"
)

func decodeFLAC(r io.Reader) (Clip, error) {
	decoder, err := flac.NewDecoder(r)
	if err != nil {
		return Clip{}, err
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return Clip{}, err
	}
	bytesPerSample := decoder.BitsPerSample / 8

	var interleaved []float64
	for {
		frame, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Clip{}, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch decoder.BitsPerSample {
			case 8:
				sample = int32(int8(frame[i]))
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(int8(frame[i+2]))<<16
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			interleaved = append(interleaved, float64(sample)/divisor)
		}
	}

	return Clip{
		Samples:    mixdown(interleaved, decoder.NChannels),
		SampleRate: decoder.SampleRate,
	}, nil
}
