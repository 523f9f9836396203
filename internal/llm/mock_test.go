package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
)

func TestMockConsentDecision(t *testing.T) {
	p := NewMockProvider()
	for utterance, want := range map[string]string{
		"うん、いいよ":  "yes",
		"だめ！":     "no",
		"きょうのてんき": "unknown",
	} {
		out, err := p.CallInnerTask(context.Background(), orchestrator.TaskInput{
			Kind:      orchestrator.TaskConsentDecision,
			Utterance: utterance,
		})
		if err != nil {
			t.Fatalf("CallInnerTask: %v", err)
		}
		if got := orchestrator.ParseConsentDecision(out); got != want {
			t.Fatalf("decision for %q = %q, want %q", utterance, got, want)
		}
	}
}

func TestMockMemoryExtract(t *testing.T) {
	p := NewMockProvider()

	out, err := p.CallInnerTask(context.Background(), orchestrator.TaskInput{
		Kind:     orchestrator.TaskMemoryExtract,
		UserText: "いちごが好き",
	})
	if err != nil {
		t.Fatalf("CallInnerTask: %v", err)
	}
	candidate, ok := orchestrator.ParseMemoryCandidate(out)
	if !ok {
		t.Fatalf("candidate output rejected: %q", out)
	}
	if candidate.Kind != orchestrator.MemoryKindLikes {
		t.Fatalf("kind = %q", candidate.Kind)
	}

	out, _ = p.CallInnerTask(context.Background(), orchestrator.TaskInput{
		Kind:     orchestrator.TaskMemoryExtract,
		UserText: "きょうはあつい",
	})
	if _, ok := orchestrator.ParseMemoryCandidate(out); ok {
		t.Fatalf("non-preference utterance produced a candidate: %q", out)
	}
}

func TestMockSessionSummaryParses(t *testing.T) {
	p := NewMockProvider()
	out, err := p.CallInnerTask(context.Background(), orchestrator.TaskInput{
		Kind: orchestrator.TaskSessionSummary,
		Messages: []orchestrator.Message{
			{Role: "user", Text: "こうえんにいった"},
			{Role: "assistant", Text: "いいね。"},
		},
	})
	if err != nil {
		t.Fatalf("CallInnerTask: %v", err)
	}
	sum := orchestrator.ParseSessionSummary(out)
	if sum.Title == "要約" && sum.Summary == "要約を生成できませんでした。" {
		t.Fatalf("mock summary fell back: %q", out)
	}
}

func TestMockChatMentionsPersonalName(t *testing.T) {
	p := NewMockProvider()
	res, err := p.Call(context.Background(), orchestrator.ChatInput{
		Mode:         orchestrator.ModePersonal,
		PersonalName: "みゆ",
		UserText:     "こんにちは",
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(res.Text, "みゆ") {
		t.Fatalf("reply %q does not mention the personal name", res.Text)
	}
	if !p.Synchronous() {
		t.Fatalf("mock should be synchronous")
	}
}
