// Package voice synthesizes the spoken command that asks a smart speaker to
// soothe the baby.
package voice

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jingnanl/infant-guard/internal/conf"
	"github.com/jingnanl/infant-guard/internal/errors"
	"github.com/jingnanl/infant-guard/internal/httpclient"
	"github.com/jingnanl/infant-guard/internal/logger"
)

const componentName = "voice"

// ContentType is the MIME type of synthesized audio.
const ContentType = "audio/mpeg"

// DefaultCacheTTL is how long synthesized commands are reused.
const DefaultCacheTTL = 24 * time.Hour

// synthesizeRequest is the text-to-speech request body.
type synthesizeRequest struct {
	Text         string `json:"Text"`
	VoiceID      string `json:"VoiceId"`
	OutputFormat string `json:"OutputFormat"`
}

// Synthesizer converts text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// HTTPSynthesizer calls a SynthesizeSpeech compatible endpoint returning mp3 bytes.
type HTTPSynthesizer struct {
	client   *httpclient.Client
	endpoint string
}

// NewHTTPSynthesizer creates a synthesizer for the configured endpoint.
func NewHTTPSynthesizer(client *httpclient.Client, endpoint string) *HTTPSynthesizer {
	return &HTTPSynthesizer{client: client, endpoint: endpoint}
}

// Synthesize returns mp3 audio for text.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	audio, err := s.client.PostJSON(ctx, s.endpoint, synthesizeRequest{
		Text:         text,
		VoiceID:      voiceID,
		OutputFormat: "mp3",
	})
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryVoice).
			Build()
	}
	if len(audio) == 0 {
		return nil, errors.Newf("speech service returned no audio").
			Component(componentName).
			Category(errors.CategoryVoice).
			Build()
	}
	return audio, nil
}

// Service produces the lullaby command audio.
type Service struct {
	synth   Synthesizer
	text    string
	voiceID string
	cache   *cache.Cache
	mu      sync.Mutex // serializes synthesis so concurrent callers share one request
	log     logger.Logger
}

// NewService creates a Service from settings.
func NewService(settings conf.VoiceSettings) (*Service, error) {
	if settings.Service.Endpoint == "" {
		return nil, errors.Newf("voice service endpoint is not configured").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	cfg := httpclient.FromEndpoint(componentName, settings.Service)
	synth := NewHTTPSynthesizer(httpclient.New(&cfg), settings.Service.Endpoint)
	return NewServiceWithSynthesizer(synth, settings.Text, settings.VoiceID, DefaultCacheTTL), nil
}

// NewServiceWithSynthesizer creates a Service around synth.
func NewServiceWithSynthesizer(synth Synthesizer, text, voiceID string, ttl time.Duration) *Service {
	if text == "" {
		text = conf.DefaultVoiceText
	}
	return &Service{
		synth:   synth,
		text:    text,
		voiceID: voiceID,
		cache:   cache.New(ttl, ttl/2),
		log:     logger.Global().Module(componentName),
	}
}

// Text returns the spoken command.
func (s *Service) Text() string {
	return s.text
}

// Command returns the audio for the configured command, synthesizing it on
// first use and after the cache entry expires.
func (s *Service) Command(ctx context.Context) ([]byte, error) {
	key := s.voiceID + "\x00" + s.text
	if audio, ok := s.cache.Get(key); ok {
		return audio.([]byte), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if audio, ok := s.cache.Get(key); ok {
		return audio.([]byte), nil
	}

	start := time.Now()
	audio, err := s.synth.Synthesize(ctx, s.text, s.voiceID)
	if err != nil {
		s.log.Error("voice synthesis failed", logger.Error(err))
		return nil, err
	}
	s.cache.SetDefault(key, audio)
	s.log.Info("voice command synthesized",
		logger.Int("bytes", len(audio)),
		logger.Duration("elapsed", time.Since(start)))
	return audio, nil
}
