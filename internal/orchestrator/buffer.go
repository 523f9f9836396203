package orchestrator

// maxBufferMessages bounds the rolling dialog window fed to the
// session-summary inner task. Older turns fall off the front.
const maxBufferMessages = 40

// Message is one dialog turn in the session buffer.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// SessionBuffer is a bounded rolling window of dialog turns plus a running
// summary carried over from earlier summarization rounds. It is a value
// type: Append and Clear return fresh buffers so reducer snapshots never
// share backing arrays.
type SessionBuffer struct {
	Messages       []Message
	RunningSummary string
}

// Append returns a new buffer with msg appended, trimming from the front
// when the window is full.
func (b SessionBuffer) Append(role, text string) SessionBuffer {
	next := make([]Message, 0, len(b.Messages)+1)
	next = append(next, b.Messages...)
	next = append(next, Message{Role: role, Text: text})
	if len(next) > maxBufferMessages {
		next = next[len(next)-maxBufferMessages:]
	}
	return SessionBuffer{Messages: next, RunningSummary: b.RunningSummary}
}

// Clear returns an empty buffer that keeps the running summary, so the next
// summarization round still sees what came before the cleared window.
func (b SessionBuffer) Clear() SessionBuffer {
	return SessionBuffer{RunningSummary: b.RunningSummary}
}

// WithRunningSummary returns a copy carrying summary as the running summary.
func (b SessionBuffer) WithRunningSummary(summary string) SessionBuffer {
	return SessionBuffer{Messages: b.Messages, RunningSummary: summary}
}

// Empty reports whether the window holds no turns.
func (b SessionBuffer) Empty() bool { return len(b.Messages) == 0 }

// LastUserText returns the most recent user turn, or "".
func (b SessionBuffer) LastUserText() string {
	for i := len(b.Messages) - 1; i >= 0; i-- {
		if b.Messages[i].Role == "user" {
			return b.Messages[i].Text
		}
	}
	return ""
}

// snapshot returns a copy of the window safe to hand to an effect payload.
func (b SessionBuffer) snapshot() []Message {
	out := make([]Message, len(b.Messages))
	copy(out, b.Messages)
	return out
}
