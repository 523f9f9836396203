package llm

import (
	"fmt"
	"strings"

	"github.com/hoshino-robotics/wakaba/internal/executor"
)

// Config selects and parameterizes the provider.
type Config struct {
	Provider       string // auto | openai | mock
	APIKey         string
	BaseURL        string
	ChatModel      string
	InnerTaskModel string
}

// New returns the provider plus its streaming surface when it has one.
// "auto" picks OpenAI when an API key is configured, mock otherwise.
func New(cfg Config) (Provider, executor.ChatStreamer, error) {
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
		return NewMockProvider(), nil, nil
	case "openai":
		p, err := NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.ChatModel, cfg.InnerTaskModel)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
