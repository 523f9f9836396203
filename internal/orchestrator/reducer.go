package orchestrator

import "fmt"

// User-facing phrases. These are wire contracts, not presentation: the
// kiosk speaks them verbatim.
const (
	sttFallbackText   = "ごめんね、もう一回言ってね"
	chatFallbackText  = "ごめんね、もう一回言ってね"
	consentPromptText = "覚えていい？"
	forgetConsentText = "さっきのことは忘れるね"
)

// Motion ids the chat result may request. thinking is reserved for the
// pre-chat state and is rejected here like any unknown id.
const (
	MotionIdle     = "idle"
	MotionGreeting = "greeting"
	MotionCheer    = "cheer"
	MotionThinking = "thinking"
)

func allowlistedMotion(id string) string {
	switch id {
	case MotionIdle, MotionGreeting, MotionCheer:
		return id
	default:
		return MotionIdle
	}
}

// Reduce is the pure conversational state machine:
// (state, event, now, config) -> (state', effects). Same inputs always
// produce the same outputs; there is no I/O, clock, or randomness inside.
// Events that do not apply (wrong phase, mismatched request id, emergency
// stop) return the state unchanged with no effects.
func Reduce(s State, ev Event, nowMS int64, cfg Config) (State, []Effect) {
	if cfg.ConsentTimeoutMS <= 0 {
		cfg.ConsentTimeoutMS = DefaultConsentTimeoutMS
	}
	if cfg.InactivityTimeoutMS <= 0 {
		cfg.InactivityTimeoutMS = DefaultInactivityTimeoutMS
	}

	if s.EmergencyStopped && ev.Type != EventStaffResume {
		return s, nil
	}

	switch ev.Type {
	case EventKioskPTTDown:
		return reducePTTDown(s, ev, nowMS)
	case EventKioskPTTUp:
		return reducePTTUp(s, ev, nowMS)
	case EventUIConsentButton:
		return reduceConsentButton(s, ev, nowMS)
	case EventStaffResetSession:
		return reduceReset(s, nowMS, false)
	case EventStaffEmergency:
		return reduceReset(s, nowMS, true)
	case EventStaffResume:
		if !s.EmergencyStopped {
			return s, nil
		}
		next, effects := reduceReset(s, nowMS, false)
		return next, effects
	case EventStaffSetMode:
		return reduceSetMode(s, ev, nowMS)
	case EventSTTResult:
		return reduceSTTResult(s, ev, nowMS, cfg)
	case EventSTTFailed:
		return reduceSTTFailed(s, ev, nowMS)
	case EventChatResult:
		return reduceChatResult(s, ev, nowMS)
	case EventChatFailed:
		return reduceChatFailed(s, ev, nowMS)
	case EventInnerTaskResult:
		return reduceInnerTaskResult(s, ev, nowMS, cfg)
	case EventInnerTaskFailed:
		return reduceInnerTaskFailed(s, ev, nowMS)
	case EventTick:
		return reduceTick(s, nowMS, cfg)
	default:
		return s, nil
	}
}

func mint(s *State, prefix string) string {
	s.RequestSeq++
	return fmt.Sprintf("%s-%d", prefix, s.RequestSeq)
}

func reducePTTDown(s State, ev Event, nowMS int64) (State, []Effect) {
	s.LastActionAtMS = nowMS
	if ev.Source != SourceStaff {
		s.KioskPTTHeld = true
	}
	switch s.Phase {
	case PhaseIdle, PhaseAskingConsent:
		s.Phase = PhaseListening
		return s, []Effect{{Type: EffectKioskRecordStart}}
	default:
		// Already listening (or mid-flight): a second DOWN emits nothing.
		return s, nil
	}
}

func reducePTTUp(s State, ev Event, nowMS int64) (State, []Effect) {
	if ev.Source != SourceStaff {
		s.KioskPTTHeld = false
	}
	if s.Phase != PhaseListening {
		return s, nil
	}
	s.LastActionAtMS = nowMS
	s.Phase = PhaseWaitingSTT
	id := mint(&s, "stt")
	s.InFlight.STT = id
	return s, []Effect{
		{Type: EffectKioskRecordStop, RequestID: id},
		{Type: EffectCallSTT, RequestID: id},
	}
}

func reduceConsentButton(s State, ev Event, nowMS int64) (State, []Effect) {
	// Button presses racing a fresh utterance are ignored: the spoken answer
	// wins once the user is already holding PTT.
	if s.Phase == PhaseListening {
		return s, nil
	}
	if !s.ConsentPending() {
		return s, nil
	}
	inConsentDecision := s.Phase == PhaseWaitingInnerTask && s.InFlight.ConsentInner != ""
	if s.Phase != PhaseAskingConsent && !inConsentDecision {
		return s, nil
	}

	s.LastActionAtMS = nowMS
	return applyConsentDecision(s, ev.Answer == "yes")
}

// applyConsentDecision resolves the pending candidate. Any in-flight
// consent_decision inner task is short-circuited: its slot is cleared and a
// late result will no longer match.
func applyConsentDecision(s State, accepted bool) (State, []Effect) {
	var effects []Effect
	if accepted && s.Candidate != nil {
		effects = append(effects, Effect{Type: EffectStoreWritePending, Candidate: s.Candidate})
	}
	effects = append(effects, Effect{Type: EffectShowConsentUI, Visible: false})

	s.Candidate = nil
	s.ConsentDeadlineAtMS = 0
	s.InFlight.ConsentInner = ""
	s.Phase = PhaseIdle
	return s, effects
}

// reduceReset covers STAFF_RESET_SESSION, STAFF_EMERGENCY_STOP, and the
// reset half of STAFF_RESUME. The request sequence survives so ids are
// never reused across resets.
func reduceReset(s State, nowMS int64, emergency bool) (State, []Effect) {
	var effects []Effect
	if s.Phase == PhaseListening {
		effects = append(effects, Effect{Type: EffectKioskRecordStop})
	}

	instance := "motion-reset-session"
	if emergency {
		instance = "motion-emergency-stop"
	} else if s.EmergencyStopped {
		instance = "motion-staff-resume"
	}
	effects = append(effects,
		Effect{Type: EffectPlayMotion, MotionID: MotionIdle, MotionInstanceID: instance},
		Effect{Type: EffectSetMode, Mode: ModeRoom},
		Effect{Type: EffectShowConsentUI, Visible: false},
	)

	next := NewState()
	next.RequestSeq = s.RequestSeq
	next.LastActionAtMS = nowMS
	next.EmergencyStopped = emergency
	return next, effects
}

func reduceSetMode(s State, ev Event, nowMS int64) (State, []Effect) {
	switch ev.Mode {
	case ModePersonal:
		if ev.PersonalName == "" {
			return s, nil
		}
		s.Mode = ModePersonal
		s.PersonalName = ev.PersonalName
	case ModeRoom:
		s.Mode = ModeRoom
		s.PersonalName = ""
	default:
		return s, nil
	}
	s.LastActionAtMS = nowMS
	return s, []Effect{{Type: EffectSetMode, Mode: s.Mode, PersonalName: s.PersonalName}}
}

func reduceSTTResult(s State, ev Event, nowMS int64, cfg Config) (State, []Effect) {
	if s.Phase != PhaseWaitingSTT || ev.RequestID == "" || ev.RequestID != s.InFlight.STT {
		return s, nil
	}
	s.LastActionAtMS = nowMS
	s.InFlight.STT = ""

	if s.ConsentPending() {
		// The utterance answers the consent question; it never enters the
		// session buffer.
		s.Phase = PhaseWaitingInnerTask
		id := mint(&s, "inner")
		s.InFlight.ConsentInner = id
		return s, []Effect{{
			Type:      EffectCallInnerTask,
			RequestID: id,
			Task:      TaskInput{Kind: TaskConsentDecision, Utterance: ev.Text},
		}}
	}

	s.Buffer = s.Buffer.Append("user", ev.Text)
	s.Phase = PhaseWaitingChat
	id := mint(&s, "chat")
	s.InFlight.Chat = id
	return s, []Effect{
		{
			Type:             EffectPlayMotion,
			MotionID:         MotionThinking,
			MotionInstanceID: "motion-" + id + "-thinking",
		},
		{
			Type:      EffectCallChat,
			RequestID: id,
			Input: ChatInput{
				Mode:           s.Mode,
				PersonalName:   s.PersonalName,
				UserText:       ev.Text,
				History:        s.Buffer.snapshot(),
				RunningSummary: s.Buffer.RunningSummary,
			},
		},
	}
}

func reduceSTTFailed(s State, ev Event, nowMS int64) (State, []Effect) {
	if s.Phase != PhaseWaitingSTT || ev.RequestID == "" || ev.RequestID != s.InFlight.STT {
		return s, nil
	}
	s.LastActionAtMS = nowMS
	s.InFlight.STT = ""
	if s.ConsentPending() {
		s.Phase = PhaseAskingConsent
	} else {
		s.Phase = PhaseIdle
	}
	return s, []Effect{{Type: EffectSay, Text: sttFallbackText}}
}

func reduceChatResult(s State, ev Event, nowMS int64) (State, []Effect) {
	if s.Phase != PhaseWaitingChat || ev.RequestID == "" || ev.RequestID != s.InFlight.Chat {
		return s, nil
	}
	s.LastActionAtMS = nowMS
	s.InFlight.Chat = ""
	s.Buffer = s.Buffer.Append("assistant", ev.Text)

	expression := ev.Expression
	if expression == "" {
		expression = "neutral"
	}

	// Fixed ordering: expression, motion, tool calls, say. Tests assert the
	// exact sequence.
	effects := []Effect{
		{Type: EffectSetExpression, Expression: expression},
		{
			Type:             EffectPlayMotion,
			MotionID:         allowlistedMotion(ev.MotionID),
			MotionInstanceID: "motion-" + ev.RequestID,
		},
	}
	if len(ev.ToolCalls) > 0 {
		effects = append(effects, Effect{Type: EffectKioskToolCalls, ToolCalls: ev.ToolCalls})
	}
	effects = append(effects, Effect{
		Type:          EffectSay,
		Text:          ev.Text,
		ChatRequestID: ev.RequestID,
	})

	if s.Mode == ModePersonal && s.Candidate == nil {
		s.Phase = PhaseWaitingInnerTask
		id := mint(&s, "inner")
		s.InFlight.MemoryExtract = id
		effects = append(effects, Effect{
			Type:      EffectCallInnerTask,
			RequestID: id,
			Task: TaskInput{
				Kind:          TaskMemoryExtract,
				UserText:      s.Buffer.LastUserText(),
				AssistantText: ev.Text,
			},
		})
		return s, effects
	}

	s.Phase = PhaseIdle
	return s, effects
}

func reduceChatFailed(s State, ev Event, nowMS int64) (State, []Effect) {
	if s.Phase != PhaseWaitingChat || ev.RequestID == "" || ev.RequestID != s.InFlight.Chat {
		return s, nil
	}
	s.LastActionAtMS = nowMS
	s.InFlight.Chat = ""
	s.Phase = PhaseIdle
	return s, []Effect{
		{Type: EffectPlayMotion, MotionID: MotionIdle, MotionInstanceID: "motion-" + ev.RequestID},
		{Type: EffectSay, Text: chatFallbackText, ChatRequestID: ev.RequestID},
	}
}

func reduceInnerTaskResult(s State, ev Event, nowMS int64, cfg Config) (State, []Effect) {
	if ev.RequestID == "" {
		return s, nil
	}
	switch ev.RequestID {
	case s.InFlight.ConsentInner:
		s.LastActionAtMS = nowMS
		s.InFlight.ConsentInner = ""
		switch ParseConsentDecision(ev.JSON) {
		case "yes":
			return applyConsentDecision(s, true)
		case "no":
			return applyConsentDecision(s, false)
		default:
			// Undecidable answer: keep asking, slot cleared so the UI
			// buttons (or a retry) can settle it. The deadline may have
			// fired while the decision was in flight; with nothing left to
			// ask about, the machine returns to idle instead.
			if s.ConsentPending() {
				s.Phase = PhaseAskingConsent
			} else {
				s.Phase = PhaseIdle
			}
			return s, nil
		}

	case s.InFlight.MemoryExtract:
		s.LastActionAtMS = nowMS
		s.InFlight.MemoryExtract = ""
		if s.Phase != PhaseWaitingInnerTask {
			return s, nil
		}
		candidate, ok := ParseMemoryCandidate(ev.JSON)
		if !ok {
			s.Phase = PhaseIdle
			return s, nil
		}
		s.Phase = PhaseAskingConsent
		s.Candidate = candidate
		s.ConsentDeadlineAtMS = nowMS + cfg.ConsentTimeoutMS
		return s, []Effect{
			{Type: EffectSay, Text: consentPromptText},
			{Type: EffectShowConsentUI, Visible: true},
		}

	case s.InFlight.SessionSummary:
		s.LastActionAtMS = nowMS
		s.InFlight.SessionSummary = ""
		summary := ParseSessionSummary(ev.JSON)
		s.Buffer = s.Buffer.WithRunningSummary(summary.Summary)
		return s, []Effect{{Type: EffectStoreWriteSessionSummaryPending, Summary: &summary}}

	default:
		return s, nil
	}
}

func reduceInnerTaskFailed(s State, ev Event, nowMS int64) (State, []Effect) {
	if ev.RequestID == "" {
		return s, nil
	}
	switch ev.RequestID {
	case s.InFlight.ConsentInner:
		s.LastActionAtMS = nowMS
		s.InFlight.ConsentInner = ""
		// Same deadline race as the undecidable-answer branch: only keep
		// asking while a candidate is still pending.
		if s.ConsentPending() {
			s.Phase = PhaseAskingConsent
		} else {
			s.Phase = PhaseIdle
		}
		return s, nil
	case s.InFlight.MemoryExtract:
		s.LastActionAtMS = nowMS
		s.InFlight.MemoryExtract = ""
		if s.Phase == PhaseWaitingInnerTask {
			s.Phase = PhaseIdle
		}
		return s, nil
	case s.InFlight.SessionSummary:
		// The dialog window was already cleared at dispatch; with no model
		// output there is nothing reviewable to store.
		s.InFlight.SessionSummary = ""
		return s, nil
	default:
		return s, nil
	}
}

func reduceTick(s State, nowMS int64, cfg Config) (State, []Effect) {
	var effects []Effect

	if s.ConsentDeadlineAtMS != 0 && nowMS >= s.ConsentDeadlineAtMS && s.Phase != PhaseListening {
		s.Candidate = nil
		s.ConsentDeadlineAtMS = 0
		if s.Phase == PhaseAskingConsent {
			s.Phase = PhaseIdle
		}
		effects = append(effects,
			Effect{Type: EffectSay, Text: forgetConsentText},
			Effect{Type: EffectShowConsentUI, Visible: false},
		)
	}

	if s.Phase == PhaseIdle &&
		s.InFlight.SessionSummary == "" &&
		!s.Buffer.Empty() &&
		nowMS-s.LastActionAtMS >= cfg.InactivityTimeoutMS {
		id := mint(&s, "inner")
		s.InFlight.SessionSummary = id
		effects = append(effects, Effect{
			Type:      EffectCallInnerTask,
			RequestID: id,
			Task: TaskInput{
				Kind:           TaskSessionSummary,
				Messages:       s.Buffer.snapshot(),
				RunningSummary: s.Buffer.RunningSummary,
			},
		})
		s.Buffer = s.Buffer.Clear()
	}

	return s, effects
}
