// Package llm provides the chat and inner-task language-model providers.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hoshino-robotics/wakaba/internal/executor"
	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
)

// Provider bundles the three LLM surfaces the executor consumes. Streaming
// is optional; the factory reports it separately.
type Provider interface {
	executor.ChatCaller
	executor.InnerTasker
}

// chatReplyDTO is the structured reply contract for the non-streaming chat
// call. The model answers JSON; unparseable output degrades to plain text.
type chatReplyDTO struct {
	Text       string `json:"text"`
	Expression string `json:"expression"`
	MotionID   string `json:"motion_id"`
}

func parseChatReply(content string) executor.ChatResult {
	var dto chatReplyDTO
	if err := json.Unmarshal([]byte(content), &dto); err == nil && strings.TrimSpace(dto.Text) != "" {
		return executor.ChatResult{
			Text:       strings.TrimSpace(dto.Text),
			Expression: strings.TrimSpace(dto.Expression),
			MotionID:   strings.TrimSpace(dto.MotionID),
		}
	}
	return executor.ChatResult{Text: strings.TrimSpace(content)}
}

func chatSystemPrompt(input orchestrator.ChatInput) string {
	var b strings.Builder
	b.WriteString("あなたは子ども向け施設の案内ロボット「わかば」です。")
	b.WriteString("やさしい日本語で、短く話しかけてください。")
	if input.Mode == orchestrator.ModePersonal && input.PersonalName != "" {
		fmt.Fprintf(&b, "いま話している相手は %s さんです。", input.PersonalName)
	}
	if input.RunningSummary != "" {
		fmt.Fprintf(&b, "\nこれまでの会話の要約: %s", input.RunningSummary)
	}
	return b.String()
}

const chatReplyFormatPrompt = `返答は次のJSONだけを出力してください:
{"text":"話す内容","expression":"neutral|happy|sad|surprised","motion_id":"idle|greeting|cheer"}`

func innerTaskPrompt(task orchestrator.TaskInput) (system, user string, err error) {
	switch task.Kind {
	case orchestrator.TaskConsentDecision:
		system = `子どもの発話が「覚えていい？」への返事かどうか判定します。` +
			`次のJSONだけを出力してください: {"decision":"yes|no|unknown"}`
		user = task.Utterance
		return system, user, nil

	case orchestrator.TaskMemoryExtract:
		system = `会話から覚えてよい好みをひとつ抽出します。` +
			`なければ {"kind":"none"} を、あれば次のJSONだけを出力してください: ` +
			`{"kind":"likes|food|play|hobby","value":"短い事実","source_quote":"発話の引用"}`
		user = fmt.Sprintf("こども: %s\nわかば: %s", task.UserText, task.AssistantText)
		return system, user, nil

	case orchestrator.TaskSessionSummary:
		system = `会話の要約カードを作ります。個人情報は書かないでください。` +
			`次のJSONだけを出力してください: ` +
			`{"title":"...","summary":"...","topics":["..."],"staff_notes":["..."]}`
		var b strings.Builder
		if task.RunningSummary != "" {
			fmt.Fprintf(&b, "これまでの要約: %s\n", task.RunningSummary)
		}
		for _, m := range task.Messages {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text)
		}
		user = b.String()
		return system, user, nil

	default:
		return "", "", fmt.Errorf("llm: unknown inner task kind %q", task.Kind)
	}
}
