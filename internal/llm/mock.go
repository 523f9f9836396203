package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hoshino-robotics/wakaba/internal/executor"
	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
)

// MockProvider is the deterministic local fallback used when OpenAI is not
// configured. It is synchronous, so executor follow-ups resolve inline.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Synchronous() bool { return true }

func (p *MockProvider) Call(_ context.Context, input orchestrator.ChatInput) (executor.ChatResult, error) {
	text := fmt.Sprintf("「%s」って言ったんだね。おしえてくれてありがとう！", input.UserText)
	if input.Mode == orchestrator.ModePersonal && input.PersonalName != "" {
		text = fmt.Sprintf("%sさん、%s", input.PersonalName, text)
	}
	return executor.ChatResult{
		Text:       text,
		Expression: "happy",
		MotionID:   "greeting",
	}, nil
}

func (p *MockProvider) CallInnerTask(_ context.Context, task orchestrator.TaskInput) (string, error) {
	switch task.Kind {
	case orchestrator.TaskConsentDecision:
		return mockConsentDecision(task.Utterance), nil
	case orchestrator.TaskMemoryExtract:
		return mockMemoryExtract(task.UserText), nil
	case orchestrator.TaskSessionSummary:
		return mockSessionSummary(task), nil
	default:
		return "", fmt.Errorf("llm: unknown inner task kind %q", task.Kind)
	}
}

func mockConsentDecision(utterance string) string {
	switch {
	case containsAny(utterance, "うん", "いいよ", "はい", "おぼえて"):
		return `{"decision":"yes"}`
	case containsAny(utterance, "だめ", "いや", "やめて", "いいえ"):
		return `{"decision":"no"}`
	default:
		return `{"decision":"unknown"}`
	}
}

func mockMemoryExtract(userText string) string {
	if !strings.Contains(userText, "好き") && !strings.Contains(userText, "すき") {
		return `{"kind":"none"}`
	}
	out, _ := json.Marshal(map[string]string{
		"kind":         "likes",
		"value":        strings.TrimSpace(userText),
		"source_quote": userText,
	})
	return string(out)
}

func mockSessionSummary(task orchestrator.TaskInput) string {
	topics := make([]string, 0, 3)
	for _, m := range task.Messages {
		if m.Role == "user" && len(topics) < 3 {
			topics = append(topics, m.Text)
		}
	}
	out, _ := json.Marshal(map[string]any{
		"title":       "きょうのおはなし",
		"summary":     fmt.Sprintf("%d回のやりとりをした。", len(task.Messages)),
		"topics":      topics,
		"staff_notes": []string{},
	})
	return string(out)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
