// Package protocol defines the wire shapes shared by the kiosk and staff
// HTTP surfaces.
package protocol

// CommandType identifies outbound kiosk command variants. The names are a
// wire contract with the kiosk client.
type CommandType string

const (
	CmdRecordStart   CommandType = "kiosk.command.record_start"
	CmdRecordStop    CommandType = "kiosk.command.record_stop"
	CmdSpeechStart   CommandType = "kiosk.command.speech.start"
	CmdSpeechSegment CommandType = "kiosk.command.speech.segment"
	CmdSpeechEnd     CommandType = "kiosk.command.speech.end"
	CmdSpeak         CommandType = "kiosk.command.speak"
	CmdPlayMotion    CommandType = "kiosk.command.play_motion"
	CmdToolCalls     CommandType = "kiosk.command.tool_calls"
)

// Command pairs a command type with its payload for fan-out to kiosk
// subscribers.
type Command struct {
	Type CommandType `json:"type"`
	Data any         `json:"data,omitempty"`
}

type RecordStop struct {
	STTRequestID string `json:"stt_request_id,omitempty"`
}

type SpeechStart struct {
	UtteranceID   string `json:"utterance_id"`
	ChatRequestID string `json:"chat_request_id"`
}

type SpeechSegment struct {
	UtteranceID   string `json:"utterance_id"`
	ChatRequestID string `json:"chat_request_id"`
	SegmentIndex  int    `json:"segment_index"`
	Text          string `json:"text"`
	IsLast        bool   `json:"is_last"`
}

type SpeechEnd struct {
	UtteranceID   string `json:"utterance_id"`
	ChatRequestID string `json:"chat_request_id"`
}

type Speak struct {
	SayID      string `json:"say_id"`
	Text       string `json:"text"`
	Expression string `json:"expression,omitempty"`
}

type PlayMotion struct {
	MotionID         string `json:"motion_id"`
	MotionInstanceID string `json:"motion_instance_id"`
}

// ToolCallFunction carries only the function name; arguments are dropped
// before anything reaches the kiosk surface.
type ToolCallFunction struct {
	Name string `json:"name"`
}

type ToolCallEnvelope struct {
	ID       string           `json:"id"`
	Function ToolCallFunction `json:"function"`
}

type ToolCalls struct {
	ToolCalls []ToolCallEnvelope `json:"tool_calls"`
}
