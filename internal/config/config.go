package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the kiosk server.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	StaffPassword   string
	StaffSessionTTL time.Duration

	SSEKeepAliveInterval time.Duration
	TickInterval         time.Duration
	ConsentTimeout       time.Duration
	InactivityTimeout    time.Duration

	StoreBackend string
	SQLitePath   string
	DatabaseURL  string

	LLMProvider    string
	STTProvider    string
	TTSProvider    string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	ChatModel      string
	InnerTaskModel string
	STTModel       string

	ElevenLabsAPIKey string
	TTSVoiceID       string
	TTSModelID       string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("WF_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("WF_METRICS_NAMESPACE", "wakaba"),
		StaffPassword:    trimmedEnv("WF_STAFF_PASSWORD"),
		StoreBackend:     envOrDefault("WF_STORE", "auto"),
		SQLitePath:       envOrDefault("WF_SQLITE_PATH", "wakaba.db"),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		LLMProvider:      envOrDefault("WF_LLM_PROVIDER", "auto"),
		STTProvider:      envOrDefault("WF_STT_PROVIDER", "auto"),
		TTSProvider:      envOrDefault("WF_TTS_PROVIDER", "auto"),
		OpenAIAPIKey:     trimmedEnv("OPENAI_API_KEY"),
		OpenAIBaseURL:    trimmedEnv("OPENAI_BASE_URL"),
		ChatModel:        envOrDefault("WF_CHAT_MODEL", "gpt-4o-mini"),
		InnerTaskModel:   envOrDefault("WF_INNER_TASK_MODEL", "gpt-4o-mini"),
		STTModel:         envOrDefault("WF_STT_MODEL", "whisper-1"),
		ElevenLabsAPIKey: trimmedEnv("ELEVENLABS_API_KEY"),
		TTSVoiceID:       trimmedEnv("WF_TTS_VOICE_ID"),
		TTSModelID:       envOrDefault("WF_TTS_MODEL_ID", "eleven_multilingual_v2"),
		ShutdownTimeout:  15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("WF_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StaffSessionTTL, err = millisFromEnv("WF_STAFF_SESSION_TTL_MS", 180_000)
	if err != nil {
		return Config{}, err
	}
	cfg.SSEKeepAliveInterval, err = millisFromEnv("WF_SSE_KEEPALIVE_INTERVAL_MS", 25_000)
	if err != nil {
		return Config{}, err
	}
	cfg.TickInterval, err = millisFromEnv("WF_TICK_INTERVAL_MS", 1_000)
	if err != nil {
		return Config{}, err
	}
	cfg.ConsentTimeout, err = millisFromEnv("WF_CONSENT_TIMEOUT_MS", 30_000)
	if err != nil {
		return Config{}, err
	}
	cfg.InactivityTimeout, err = millisFromEnv("WF_INACTIVITY_TIMEOUT_MS", 300_000)
	if err != nil {
		return Config{}, err
	}

	if cfg.TickInterval < 100*time.Millisecond {
		return Config{}, fmt.Errorf("WF_TICK_INTERVAL_MS must be at least 100")
	}
	if cfg.ConsentTimeout < time.Second {
		return Config{}, fmt.Errorf("WF_CONSENT_TIMEOUT_MS must be at least 1000")
	}
	if cfg.InactivityTimeout < 10*time.Second {
		return Config{}, fmt.Errorf("WF_INACTIVITY_TIMEOUT_MS must be at least 10000")
	}
	if cfg.SSEKeepAliveInterval < time.Second {
		return Config{}, fmt.Errorf("WF_SSE_KEEPALIVE_INTERVAL_MS must be at least 1000")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func millisFromEnv(key string, fallbackMS int64) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return time.Duration(fallbackMS) * time.Millisecond, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return time.Duration(n) * time.Millisecond, nil
}
