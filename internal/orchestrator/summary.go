package orchestrator

import (
	"encoding/json"
	"strings"

	"github.com/hoshino-robotics/wakaba/internal/policy"
)

// SessionSummary is the bounded DTO written as a pending card for staff
// review after inactivity-driven summarization.
type SessionSummary struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Topics     []string `json:"topics"`
	StaffNotes []string `json:"staff_notes"`
}

const (
	summaryTitleMaxRunes = 60
	summaryBodyMaxRunes  = 400
	summaryTopicMax      = 5
	summaryTopicMaxRunes = 40
	summaryNoteMax       = 5
	summaryNoteMaxRunes  = 80
)

// FallbackSessionSummary is written when the inner task produced output
// that cannot be normalized into a valid card.
func FallbackSessionSummary() SessionSummary {
	return SessionSummary{
		Title:      "要約",
		Summary:    "要約を生成できませんでした。",
		Topics:     []string{},
		StaffNotes: []string{},
	}
}

// ParseSessionSummary normalizes raw inner-task JSON into a valid summary
// card: trim, collapse whitespace, mask PII, clamp lengths. Missing or
// invalid required fields collapse to the fixed fallback. The result is
// idempotent under re-parse.
func ParseSessionSummary(raw string) SessionSummary {
	var dto SessionSummary
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return FallbackSessionSummary()
	}

	dto.Title = clampText(dto.Title, summaryTitleMaxRunes)
	dto.Summary = clampText(dto.Summary, summaryBodyMaxRunes)
	if dto.Title == "" || dto.Summary == "" {
		return FallbackSessionSummary()
	}

	dto.Topics = clampList(dto.Topics, summaryTopicMax, summaryTopicMaxRunes)
	dto.StaffNotes = clampList(dto.StaffNotes, summaryNoteMax, summaryNoteMaxRunes)
	return dto
}

func clampText(s string, maxRunes int) string {
	s, _ = policy.MaskPII(collapseWhitespace(strings.TrimSpace(s)))
	r := []rune(s)
	if len(r) > maxRunes {
		r = r[:maxRunes]
	}
	return strings.TrimSpace(string(r))
}

func clampList(items []string, maxItems, maxRunes int) []string {
	out := make([]string, 0, maxItems)
	for _, item := range items {
		if len(out) >= maxItems {
			break
		}
		item = clampText(item, maxRunes)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseMemoryCandidate validates raw memory_extract JSON. It returns false
// for unparseable output, unknown kinds, or an empty value after trim.
func ParseMemoryCandidate(raw string) (*MemoryCandidate, bool) {
	var dto MemoryCandidate
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return nil, false
	}
	dto.Value = strings.TrimSpace(dto.Value)
	dto.SourceQuote = strings.TrimSpace(dto.SourceQuote)
	if dto.Value == "" || !ValidMemoryKind(dto.Kind) {
		return nil, false
	}
	return &dto, true
}

// ParseConsentDecision extracts the yes/no decision from consent_decision
// output. Anything else is "unknown" and keeps the consent question open.
func ParseConsentDecision(raw string) string {
	var dto struct {
		Decision string `json:"decision"`
	}
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return "unknown"
	}
	switch strings.ToLower(strings.TrimSpace(dto.Decision)) {
	case "yes":
		return "yes"
	case "no":
		return "no"
	default:
		return "unknown"
	}
}
