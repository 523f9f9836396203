// Package tts synthesizes speech for kiosk playback.
package tts

import (
	"context"
	"fmt"
	"strings"

	"github.com/hoshino-robotics/wakaba/internal/audio"
)

// Synthesizer turns a speakable segment into a mono PCM16 WAV clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// MockSynthesizer returns silence sized to the text so the kiosk audio
// path can be exercised without an upstream voice service.
type MockSynthesizer struct {
	SampleRate int
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{SampleRate: audio.DefaultSampleRate}
}

func (s *MockSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("tts: empty text")
	}
	// Roughly 120ms of silence per rune, clamped to keep clips short.
	runes := len([]rune(text))
	if runes > 40 {
		runes = 40
	}
	samples := s.SampleRate * runes * 120 / 1000
	return audio.EncodeWAVPCM16LE(make([]byte, samples*2), s.SampleRate), nil
}

// Config selects the synthesizer.
type Config struct {
	Provider string // auto | elevenlabs | mock
	APIKey   string
	VoiceID  string
	ModelID  string
}

func New(cfg Config) (Synthesizer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == "auto" {
		if strings.TrimSpace(cfg.APIKey) != "" && strings.TrimSpace(cfg.VoiceID) != "" {
			provider = "elevenlabs"
		} else {
			provider = "mock"
		}
	}

	switch provider {
	case "mock":
		return NewMockSynthesizer(), nil
	case "elevenlabs":
		return NewElevenLabsSynthesizer(ElevenLabsConfig{
			APIKey:  cfg.APIKey,
			VoiceID: cfg.VoiceID,
			ModelID: cfg.ModelID,
		})
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.Provider)
	}
}
