package orchestrator

// EffectType identifies the declarative side effects returned by Reduce.
type EffectType string

const (
	EffectKioskRecordStart EffectType = "KIOSK_RECORD_START"
	EffectKioskRecordStop  EffectType = "KIOSK_RECORD_STOP"
	EffectCallSTT          EffectType = "CALL_STT"
	EffectCallChat         EffectType = "CALL_CHAT"
	EffectCallInnerTask    EffectType = "CALL_INNER_TASK"
	EffectSay              EffectType = "SAY"
	EffectKioskToolCalls   EffectType = "KIOSK_TOOL_CALLS"
	EffectSetExpression    EffectType = "SET_EXPRESSION"
	EffectPlayMotion       EffectType = "PLAY_MOTION"
	EffectSetMode          EffectType = "SET_MODE"
	EffectShowConsentUI    EffectType = "SHOW_CONSENT_UI"

	EffectStoreWritePending               EffectType = "STORE_WRITE_PENDING"
	EffectStoreWriteSessionSummaryPending EffectType = "STORE_WRITE_SESSION_SUMMARY_PENDING"
)

// TaskKind discriminates inner-task inputs.
type TaskKind string

const (
	TaskConsentDecision TaskKind = "consent_decision"
	TaskMemoryExtract   TaskKind = "memory_extract"
	TaskSessionSummary  TaskKind = "session_summary"
)

// ChatInput is the payload for CALL_CHAT.
type ChatInput struct {
	Mode           Mode
	PersonalName   string
	UserText       string
	History        []Message
	RunningSummary string
}

// TaskInput is the discriminated payload for CALL_INNER_TASK.
type TaskInput struct {
	Kind TaskKind

	// consent_decision
	Utterance string

	// memory_extract
	UserText      string
	AssistantText string

	// session_summary
	Messages       []Message
	RunningSummary string
}

// Effect is the single tagged output struct. Only the fields relevant to
// Type are populated; the executor dispatches with an exhaustive switch.
type Effect struct {
	Type EffectType

	// RequestID: CALL_* request id; on KIOSK_RECORD_STOP it is the stt
	// request id the kiosk should attach to its audio upload.
	RequestID string

	// SAY payload.
	Text          string
	ChatRequestID string

	Input ChatInput
	Task  TaskInput

	Expression       string
	MotionID         string
	MotionInstanceID string

	Mode         Mode
	PersonalName string

	Visible bool

	ToolCalls []ToolCall

	Candidate *MemoryCandidate
	Summary   *SessionSummary
}
