package orchestrator

// EventType identifies reducer input variants.
type EventType string

const (
	EventKioskPTTDown      EventType = "KIOSK_PTT_DOWN"
	EventKioskPTTUp        EventType = "KIOSK_PTT_UP"
	EventUIConsentButton   EventType = "UI_CONSENT_BUTTON"
	EventStaffResetSession EventType = "STAFF_RESET_SESSION"
	EventStaffEmergency    EventType = "STAFF_EMERGENCY_STOP"
	EventStaffResume       EventType = "STAFF_RESUME"
	EventStaffSetMode      EventType = "STAFF_SET_MODE"
	EventSTTResult         EventType = "STT_RESULT"
	EventSTTFailed         EventType = "STT_FAILED"
	EventChatResult        EventType = "CHAT_RESULT"
	EventChatFailed        EventType = "CHAT_FAILED"
	EventInnerTaskResult   EventType = "INNER_TASK_RESULT"
	EventInnerTaskFailed   EventType = "INNER_TASK_FAILED"
	EventTick              EventType = "TICK"
)

// PTT source labels. Staff push-to-talk reaches the reducer as the same
// DOWN/UP pair with a different source; the source only matters for the
// kiosk-held bookkeeping bit.
const (
	SourceKiosk = "kiosk"
	SourceStaff = "staff"
)

// ToolCall is the flattened tool invocation surfaced to the kiosk. Full
// arguments are intentionally dropped at this boundary.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is the single tagged input struct consumed by Reduce. Only the
// fields relevant to Type are populated.
type Event struct {
	Type EventType

	// Source distinguishes kiosk and staff PTT ("kiosk" when empty).
	Source string

	// Answer is "yes" or "no" for UI_CONSENT_BUTTON.
	Answer string

	// RequestID correlates provider results with in-flight slots.
	RequestID string

	// Text carries STT_RESULT transcripts and CHAT_RESULT assistant text.
	Text string

	// JSON carries the raw inner-task output for INNER_TASK_RESULT.
	JSON string

	// CHAT_RESULT extras.
	Expression string
	MotionID   string
	ToolCalls  []ToolCall

	// STAFF_SET_MODE payload.
	Mode         Mode
	PersonalName string
}
