package executor

import (
	"context"

	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
)

// ChatResult is the non-streaming LLM chat outcome.
type ChatResult struct {
	Text       string
	Expression string
	MotionID   string
	ToolCalls  []orchestrator.ToolCall
}

// ChatCaller is the required LLM chat surface.
type ChatCaller interface {
	Call(ctx context.Context, input orchestrator.ChatInput) (ChatResult, error)
}

// ChatStreamer is the optional streaming surface. Deltas arrive through
// onDelta; returning an error from onDelta stops the stream. Cancelling ctx
// must make the provider return promptly.
type ChatStreamer interface {
	StreamChat(ctx context.Context, input orchestrator.ChatInput, onDelta func(delta string) error) error
}

// InnerTasker runs an auxiliary JSON-producing LLM call.
type InnerTasker interface {
	CallInnerTask(ctx context.Context, task orchestrator.TaskInput) (string, error)
}

// STTRequest is one push-to-talk clip to transcribe.
type STTRequest struct {
	RequestID string
	Mode      orchestrator.Mode
	WAV       []byte
}

type STTResult struct {
	Text string
}

// Transcriber converts a recorded clip to text.
type Transcriber interface {
	Transcribe(ctx context.Context, req STTRequest) (STTResult, error)
}

// synchronous marks providers that complete inline (mocks, local models).
// The executor returns their follow-up events from ExecuteEffects instead
// of routing them through the queue.
type synchronous interface {
	Synchronous() bool
}

func isSynchronous(v any) bool {
	s, ok := v.(synchronous)
	return ok && s.Synchronous()
}
