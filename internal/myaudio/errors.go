package myaudio

import (
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

const componentName = "myaudio"

// Sentinel errors for decoding.
var (
	ErrUnsupportedFormat = errors.NewStd("unsupported audio format")
	ErrEmptyAudio        = errors.NewStd("audio contains no samples")
)

func decodeError(err error, format string) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryAudioDecode).
		Context("format", format).
		Build()
}

// GetLogger returns the audio module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("audio")
}
