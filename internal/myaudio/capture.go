package myaudio

import (
	"context"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/logger"
)

const (
	bytesPerS16Sample = 2
	recordPollDelay   = 100 * time.Millisecond
)

// Recorder keeps the most recent clip of captured S16 mono audio in a ring
// buffer. Record returns a copy of that window once it has filled.
type Recorder struct {
	source     string
	sampleRate int
	clipBytes  int

	mu      sync.Mutex
	rb      *ringbuffer.RingBuffer
	scratch []byte

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	log      logger.Logger
}

// NewRecorder creates a recorder holding clipSeconds of audio. source selects
// the capture device by name or ID substring; empty uses the system default.
func NewRecorder(source string, sampleRate, clipSeconds int) (*Recorder, error) {
	if sampleRate <= 0 || clipSeconds <= 0 {
		return nil, errors.Newf("invalid recorder settings: sample rate %d, clip length %d", sampleRate, clipSeconds).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	clipBytes := sampleRate * clipSeconds * bytesPerS16Sample
	return &Recorder{
		source:     source,
		sampleRate: sampleRate,
		clipBytes:  clipBytes,
		rb:         ringbuffer.New(clipBytes),
		scratch:    make([]byte, clipBytes),
		log:        GetLogger().Module("capture"),
	}, nil
}

// SampleRate returns the capture rate in Hz.
func (r *Recorder) SampleRate() int {
	return r.sampleRate
}

// Start opens the capture device and begins filling the buffer.
func (r *Recorder) Start() error {
	malgoCtx, err := malgo.InitContext(captureBackends(), malgo.ContextConfig{}, func(message string) {
		r.log.Trace("miniaudio", logger.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return captureError(err, "init-context")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(r.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if r.source != "" {
		infos, err := malgoCtx.Devices(malgo.Capture)
		if err != nil {
			_ = malgoCtx.Uninit()
			malgoCtx.Free()
			return captureError(err, "list-devices")
		}
		info, err := selectCaptureDevice(infos, r.source)
		if err != nil {
			_ = malgoCtx.Uninit()
			malgoCtx.Free()
			return err
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
		r.log.Info("using capture device", logger.String("name", info.Name()))
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			r.Write(input)
		},
	})
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return captureError(err, "init-device")
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return captureError(err, "start-device")
	}

	r.malgoCtx = malgoCtx
	r.device = device
	r.log.Info("audio capture started",
		logger.Int("sample_rate", r.sampleRate),
		logger.Int("clip_bytes", r.clipBytes))
	return nil
}

// Write appends S16 PCM, dropping the oldest bytes when the window is full.
func (r *Recorder) Write(pcm []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(pcm) > r.clipBytes {
		pcm = pcm[len(pcm)-r.clipBytes:]
	}
	if overflow := len(pcm) - r.rb.Free(); overflow > 0 {
		_, _ = r.rb.Read(r.scratch[:overflow])
	}
	if _, err := r.rb.Write(pcm); err != nil {
		r.log.Warn("dropping captured audio", logger.Int("bytes", len(pcm)), logger.Error(err))
	}
}

// Buffered returns the number of bytes currently held.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rb.Length()
}

// Record waits until a full clip is buffered and returns it. The buffer is
// left intact so consecutive calls overlap when the capture is slower than
// the caller.
func (r *Recorder) Record(ctx context.Context) (Clip, error) {
	ticker := time.NewTicker(recordPollDelay)
	defer ticker.Stop()

	for {
		if clip, ok := r.snapshot(); ok {
			return clip, nil
		}
		select {
		case <-ctx.Done():
			return Clip{}, errors.New(ctx.Err()).
				Component(componentName).
				Category(errors.CategoryCancellation).
				Context("buffered_bytes", r.Buffered()).
				Build()
		case <-ticker.C:
		}
	}
}

func (r *Recorder) snapshot() (Clip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.rb.Length()
	if n < r.clipBytes {
		return Clip{}, false
	}
	data := make([]byte, n)
	if _, err := r.rb.Read(data); err != nil {
		return Clip{}, false
	}
	// put the window back for the next reader
	_, _ = r.rb.Write(data)

	return Clip{
		Samples:    SamplesFromPCM16(data),
		SampleRate: r.sampleRate,
	}, true
}

// Close stops the device and releases the audio context.
func (r *Recorder) Close() error {
	if r.device != nil {
		if err := r.device.Stop(); err != nil {
			r.log.Warn("failed to stop capture device", logger.Error(err))
		}
		r.device.Uninit()
		r.device = nil
	}
	if r.malgoCtx != nil {
		err := r.malgoCtx.Uninit()
		r.malgoCtx.Free()
		r.malgoCtx = nil
		if err != nil {
			return captureError(err, "uninit-context")
		}
	}
	return nil
}

func captureBackends() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

func selectCaptureDevice(infos []malgo.DeviceInfo, source string) (malgo.DeviceInfo, error) {
	for i := range infos {
		id := infos[i].ID.String()
		if decoded, err := hex.DecodeString(id); err == nil {
			id = string(decoded)
		}
		if strings.Contains(infos[i].Name(), source) || strings.Contains(id, source) {
			return infos[i], nil
		}
	}
	return malgo.DeviceInfo{}, errors.Newf("no capture device matches %q", source).
		Component(componentName).
		Category(errors.CategoryAudioSource).
		Context("devices", len(infos)).
		Build()
}

func captureError(err error, operation string) error {
	return errors.New(fmt.Errorf("audio capture: %w", err)).
		Component(componentName).
		Category(errors.CategoryAudioSource).
		Context("operation", operation).
		Build()
}
