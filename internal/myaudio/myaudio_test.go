package myaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingnanl/infant-guard/internal/errors"
)

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// encodeRaw writes interleaved integer PCM with an arbitrary layout.
func encodeRaw(t *testing.T, data []int, sampleRate, bitDepth, channels int) []byte {
	t.Helper()
	var sb seekableBuffer
	enc := wav.NewEncoder(&sb, sampleRate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	return sb.Bytes()
}

func TestEncodeThenDecodeWAV(t *testing.T) {
	t.Parallel()

	samples := sine(440, 16000, 16000)
	data, err := EncodeWAVBytes(samples, 16000)
	require.NoError(t, err)

	clip, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 16000, clip.SampleRate)
	require.Len(t, clip.Samples, len(samples))
	assert.InDelta(t, 1.0, clip.Duration(), 1e-9)
	for i := 0; i < len(samples); i += 997 {
		assert.InDelta(t, samples[i], clip.Samples[i], 1.0/32768*2)
	}
}

func TestEncodeWAVClipsOutOfRange(t *testing.T) {
	t.Parallel()

	data, err := EncodeWAVBytes([]float64{2, -2}, 8000)
	require.NoError(t, err)

	clip, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, clip.Samples[0], 1e-4)
	assert.InDelta(t, -1.0, clip.Samples[1], 1e-4)
}

func TestDecodeStereoIsMixedDown(t *testing.T) {
	t.Parallel()

	// left full positive, right silent
	data := encodeRaw(t, []int{16384, 0, 16384, 0, -16384, 0}, 22050, 16, 2)

	clip, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 22050, clip.SampleRate)
	assert.InDeltaSlice(t, []float64{0.25, 0.25, -0.25}, clip.Samples, 1e-9)
}

func TestDecodeEightBitIsUnsigned(t *testing.T) {
	t.Parallel()

	data := encodeRaw(t, []int{128, 255, 0}, 8000, 8, 1)

	clip, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 127.0 / 128, -1}, clip.Samples, 1e-9)
}

func TestDecodeRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Decode(bytes.NewReader([]byte("ID3\x04 definitely not audio")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, errors.IsCategory(err, errors.CategoryAudioDecode))

	_, err = Decode(bytes.NewReader(nil))
	require.Error(t, err)
}

func TestReadAudioFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clip.wav")
	data, err := EncodeWAVBytes(sine(400, 16000, 8000), 16000)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	clip, err := ReadAudioFile(path)
	require.NoError(t, err)
	assert.Len(t, clip.Samples, 8000)

	_, err = ReadAudioFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"RIFF\x00\x00\x00\x00WAVE", FormatWAV, false},
		{"fLaC\x00\x00\x00\x22", FormatFLAC, false},
		{"RIFF\x00\x00\x00\x00AVI ", "", true},
		{"fLa", "", true},
	}
	for _, tt := range tests {
		got, err := DetectFormat([]byte(tt.header))
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSamplesFromPCM16(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 7)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(0x4000))
	binary.LittleEndian.PutUint16(pcm[2:], 0x8000)
	binary.LittleEndian.PutUint16(pcm[4:], 0x7fff)

	got := SamplesFromPCM16(pcm)
	require.Len(t, got, 3)
	assert.InDelta(t, 0.5, got[0], 1e-12)
	assert.InDelta(t, -1.0, got[1], 1e-12)
	assert.InDelta(t, 32767.0/32768, got[2], 1e-12)
}

func pcmOf(value int16, samples int) []byte {
	out := make([]byte, samples*2)
	for i := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(value))
	}
	return out
}

func TestRecorderKeepsMostRecentWindow(t *testing.T) {
	t.Parallel()

	r, err := NewRecorder("", 100, 1)
	require.NoError(t, err)

	r.Write(pcmOf(1000, 80))
	assert.Equal(t, 160, r.Buffered())

	r.Write(pcmOf(-1000, 60))
	assert.Equal(t, 200, r.Buffered())

	clip, err := r.Record(context.Background())
	require.NoError(t, err)
	require.Len(t, clip.Samples, 100)
	assert.Equal(t, 100, clip.SampleRate)
	assert.InDelta(t, 1000.0/32768, clip.Samples[0], 1e-12)
	assert.InDelta(t, -1000.0/32768, clip.Samples[99], 1e-12)
	assert.InDelta(t, 1000.0/32768, clip.Samples[39], 1e-12)
	assert.InDelta(t, -1000.0/32768, clip.Samples[40], 1e-12)

	// snapshot leaves the window in place
	assert.Equal(t, 200, r.Buffered())
}

func TestRecorderOversizedWrite(t *testing.T) {
	t.Parallel()

	r, err := NewRecorder("", 50, 1)
	require.NoError(t, err)

	r.Write(append(pcmOf(5, 10), pcmOf(7, 50)...))
	clip, err := r.Record(context.Background())
	require.NoError(t, err)
	for _, s := range clip.Samples {
		assert.InDelta(t, 7.0/32768, s, 1e-12)
	}
}

func TestRecorderRecordHonoursContext(t *testing.T) {
	t.Parallel()

	r, err := NewRecorder("", 100, 1)
	require.NoError(t, err)
	r.Write(pcmOf(1, 10))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err = r.Record(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}

func TestNewRecorderValidates(t *testing.T) {
	t.Parallel()

	_, err := NewRecorder("", 0, 5)
	require.Error(t, err)
	_, err = NewRecorder("", 16000, 0)
	require.Error(t, err)
}
