package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
)

var ErrUnsupportedType = errors.New("unsupported event type")

type clientEventEnvelope struct {
	Type         string `json:"type"`
	Answer       string `json:"answer,omitempty"`
	Mode         string `json:"mode,omitempty"`
	PersonalName string `json:"personal_name,omitempty"`
}

// ParseKioskEvent decodes an anonymous kiosk event into an orchestrator
// event. Only the kiosk surface's own event types are accepted.
func ParseKioskEvent(raw []byte) (orchestrator.Event, error) {
	var env clientEventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return orchestrator.Event{}, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case "KIOSK_PTT_DOWN":
		return orchestrator.Event{Type: orchestrator.EventKioskPTTDown, Source: orchestrator.SourceKiosk}, nil
	case "KIOSK_PTT_UP":
		return orchestrator.Event{Type: orchestrator.EventKioskPTTUp, Source: orchestrator.SourceKiosk}, nil
	case "UI_CONSENT_BUTTON":
		if env.Answer != "yes" && env.Answer != "no" {
			return orchestrator.Event{}, errors.New("invalid consent answer")
		}
		return orchestrator.Event{Type: orchestrator.EventUIConsentButton, Answer: env.Answer}, nil
	default:
		return orchestrator.Event{}, ErrUnsupportedType
	}
}

// ParseStaffEvent decodes an authenticated staff event. Staff push-to-talk
// maps onto the orchestrator's PTT semantics with a staff source.
func ParseStaffEvent(raw []byte) (orchestrator.Event, error) {
	var env clientEventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return orchestrator.Event{}, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case "STAFF_PTT_DOWN":
		return orchestrator.Event{Type: orchestrator.EventKioskPTTDown, Source: orchestrator.SourceStaff}, nil
	case "STAFF_PTT_UP":
		return orchestrator.Event{Type: orchestrator.EventKioskPTTUp, Source: orchestrator.SourceStaff}, nil
	case "STAFF_EMERGENCY_STOP":
		return orchestrator.Event{Type: orchestrator.EventStaffEmergency}, nil
	case "STAFF_RESUME":
		return orchestrator.Event{Type: orchestrator.EventStaffResume}, nil
	case "STAFF_RESET_SESSION":
		return orchestrator.Event{Type: orchestrator.EventStaffResetSession}, nil
	case "STAFF_SET_MODE":
		mode := orchestrator.Mode(env.Mode)
		if mode != orchestrator.ModeRoom && mode != orchestrator.ModePersonal {
			return orchestrator.Event{}, errors.New("invalid mode")
		}
		return orchestrator.Event{
			Type:         orchestrator.EventStaffSetMode,
			Mode:         mode,
			PersonalName: env.PersonalName,
		}, nil
	default:
		return orchestrator.Event{}, ErrUnsupportedType
	}
}
