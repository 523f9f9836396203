package orchestrator

// Mode selects the conversational persona scope for the kiosk.
type Mode string

const (
	ModeRoom     Mode = "ROOM"
	ModePersonal Mode = "PERSONAL"
)

// Phase is the conversational state-machine phase.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseListening        Phase = "listening"
	PhaseWaitingSTT       Phase = "waiting_stt"
	PhaseWaitingChat      Phase = "waiting_chat"
	PhaseAskingConsent    Phase = "asking_consent"
	PhaseWaitingInnerTask Phase = "waiting_inner_task"
)

// MemoryKind enumerates the categories a memory candidate may carry.
type MemoryKind string

const (
	MemoryKindLikes MemoryKind = "likes"
	MemoryKindFood  MemoryKind = "food"
	MemoryKindPlay  MemoryKind = "play"
	MemoryKindHobby MemoryKind = "hobby"
)

// ValidMemoryKind reports whether k is one of the known categories.
// Arbitrary strings from model output are rejected.
func ValidMemoryKind(k MemoryKind) bool {
	switch k {
	case MemoryKindLikes, MemoryKindFood, MemoryKindPlay, MemoryKindHobby:
		return true
	default:
		return false
	}
}

// MemoryCandidate is a fact awaiting user consent before persistence.
type MemoryCandidate struct {
	Kind        MemoryKind `json:"kind"`
	Value       string     `json:"value"`
	SourceQuote string     `json:"source_quote,omitempty"`
}

// InFlight holds the request id of each outstanding async operation.
// An empty string means no request is outstanding for that slot.
type InFlight struct {
	STT            string
	Chat           string
	ConsentInner   string
	MemoryExtract  string
	SessionSummary string
}

// Config carries the reducer timeouts. All values are milliseconds so the
// reducer never touches time.Duration or a wall clock.
type Config struct {
	ConsentTimeoutMS    int64
	InactivityTimeoutMS int64
}

const (
	DefaultConsentTimeoutMS    = 30_000
	DefaultInactivityTimeoutMS = 300_000
)

func DefaultConfig() Config {
	return Config{
		ConsentTimeoutMS:    DefaultConsentTimeoutMS,
		InactivityTimeoutMS: DefaultInactivityTimeoutMS,
	}
}

// State is the orchestrator snapshot between events. Reduce treats it as an
// immutable value: transitions return a fresh copy and never write through
// shared slices or pointers.
type State struct {
	Mode         Mode
	PersonalName string
	Phase        Phase

	LastActionAtMS int64

	Buffer SessionBuffer

	ConsentDeadlineAtMS int64
	Candidate           *MemoryCandidate

	InFlight InFlight

	EmergencyStopped bool
	KioskPTTHeld     bool

	// RequestSeq mints unique ids ({prefix}-{n}); it survives session resets
	// so ids are never reused over the life of the process.
	RequestSeq int
}

// NewState returns the initial idle ROOM state.
func NewState() State {
	return State{
		Mode:  ModeRoom,
		Phase: PhaseIdle,
	}
}

// ConsentPending reports whether a memory candidate is awaiting consent.
func (s State) ConsentPending() bool {
	return s.ConsentDeadlineAtMS != 0 && s.Candidate != nil
}
