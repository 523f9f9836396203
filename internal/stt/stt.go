// Package stt provides push-to-talk transcription providers.
package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hoshino-robotics/wakaba/internal/executor"
)

// OpenAITranscriber sends whole PTT clips to the OpenAI transcription API.
type OpenAITranscriber struct {
	client oai.Client
	model  string
}

func NewOpenAITranscriber(apiKey, baseURL, model string) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("stt: OPENAI_API_KEY must not be empty")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	return &OpenAITranscriber{client: oai.NewClient(reqOpts...), model: model}, nil
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, req executor.STTRequest) (executor.STTResult, error) {
	resp, err := t.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		Model:    oai.AudioModel(t.model),
		File:     oai.File(bytes.NewReader(req.WAV), "clip.wav", "audio/wav"),
		Language: oai.String("ja"),
	})
	if err != nil {
		return executor.STTResult{}, fmt.Errorf("stt: transcription: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return executor.STTResult{}, fmt.Errorf("stt: empty transcript")
	}
	return executor.STTResult{Text: text}, nil
}

// MockTranscriber is the local fallback; it is synchronous and yields a
// fixed transcript so the pipeline can run without credentials.
type MockTranscriber struct{}

func NewMockTranscriber() *MockTranscriber { return &MockTranscriber{} }

func (t *MockTranscriber) Synchronous() bool { return true }

func (t *MockTranscriber) Transcribe(_ context.Context, req executor.STTRequest) (executor.STTResult, error) {
	if len(req.WAV) == 0 {
		return executor.STTResult{}, fmt.Errorf("stt: empty clip")
	}
	return executor.STTResult{Text: "こんにちは"}, nil
}

// Config selects the transcriber.
type Config struct {
	Provider string // auto | openai | mock
	APIKey   string
	BaseURL  string
	Model    string
}

func New(cfg Config) (executor.Transcriber, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == "auto" {
		if strings.TrimSpace(cfg.APIKey) != "" {
			provider = "openai"
		} else {
			provider = "mock"
		}
	}

	switch provider {
	case "mock":
		return NewMockTranscriber(), nil
	case "openai":
		return NewOpenAITranscriber(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.Provider)
	}
}
