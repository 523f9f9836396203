package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hoshino-robotics/wakaba/internal/audio"
)

// ElevenLabsConfig carries the websocket synthesis parameters.
type ElevenLabsConfig struct {
	APIKey    string
	WSBaseURL string
	VoiceID   string
	ModelID   string

	Stability       float64
	SimilarityBoost float64
	Speed           float64
}

// ElevenLabsSynthesizer runs one stream-input websocket session per
// segment and returns the collected audio as a WAV clip.
type ElevenLabsSynthesizer struct {
	cfg ElevenLabsConfig
}

func NewElevenLabsSynthesizer(cfg ElevenLabsConfig) (*ElevenLabsSynthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("tts: ELEVENLABS_API_KEY must not be empty")
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		return nil, fmt.Errorf("tts: voice_id is required")
	}
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if cfg.Stability <= 0 {
		cfg.Stability = 0.42
	}
	if cfg.SimilarityBoost <= 0 {
		cfg.SimilarityBoost = 0.85
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	return &ElevenLabsSynthesizer{cfg: cfg}, nil
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("tts: empty text")
	}

	u, err := url.Parse(strings.TrimRight(s.cfg.WSBaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(s.cfg.VoiceID) + "/stream-input")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("model_id", s.cfg.ModelID)
	// Raw PCM keeps the kiosk player format-agnostic: we wrap it as WAV.
	q.Set("output_format", "pcm_16000")
	q.Set("auto_mode", "true")
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("xi-api-key", s.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("tts: dial websocket: %w", err)
	}
	sess := &elevenSession{conn: conn, done: make(chan struct{})}
	go sess.readLoop()
	defer sess.close()

	// Prime the stream as documented for TTS websocket flows.
	if err := sess.writeJSON(map[string]any{
		"text": " ",
		"voice_settings": map[string]any{
			"stability":        s.cfg.Stability,
			"similarity_boost": s.cfg.SimilarityBoost,
			"speed":            s.cfg.Speed,
		},
	}); err != nil {
		return nil, fmt.Errorf("tts: prime stream: %w", err)
	}
	if err := sess.writeJSON(map[string]any{"text": text, "try_trigger_generation": true}); err != nil {
		return nil, fmt.Errorf("tts: send text: %w", err)
	}
	if err := sess.writeJSON(map[string]any{"text": ""}); err != nil {
		return nil, fmt.Errorf("tts: close input: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-sess.done:
	}
	pcm, err := sess.result()
	if err != nil {
		return nil, err
	}
	return audio.EncodeWAVPCM16LE(pcm, audio.DefaultSampleRate), nil
}

type elevenSession struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}

	mu  sync.Mutex
	pcm []byte
	err error
}

func (s *elevenSession) writeJSON(payload map[string]any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(payload)
}

func (s *elevenSession) readLoop() {
	defer s.close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("tts: stream closed before final chunk: %w", err))
			return
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		if encoded := asString(raw["audio"]); encoded != "" {
			chunk, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				s.setErr(fmt.Errorf("tts: decode audio chunk: %w", err))
				return
			}
			s.mu.Lock()
			s.pcm = append(s.pcm, chunk...)
			s.mu.Unlock()
		}
		if errMsg := asString(raw["error"]); errMsg != "" {
			s.setErr(fmt.Errorf("tts: upstream error %s: %s", asString(raw["message_type"]), errMsg))
			return
		}
		if asBool(raw["isFinal"]) || asBool(raw["is_final"]) {
			return
		}
	}
}

func (s *elevenSession) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *elevenSession) result() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil && len(s.pcm) == 0 {
		return nil, s.err
	}
	if len(s.pcm) == 0 {
		return nil, fmt.Errorf("tts: no audio produced")
	}
	return s.pcm, nil
}

func (s *elevenSession) close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		close(s.done)
	})
}

func asString(v any) string {
	if t, ok := v.(string); ok {
		return t
	}
	return ""
}

func asBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
