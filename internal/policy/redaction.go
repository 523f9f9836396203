package policy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	// Long digit or hyphenated-digit runs that look like member ids,
	// insurance numbers, and similar identifiers.
	idLikePattern = regexp.MustCompile(`\b[0-9][0-9\-]{5,}[0-9]\b`)
)

// MaskPII masks likely phone, email, and id-like tokens before any text is
// persisted. Summaries and memory values pass through here; raw dialog
// never reaches storage.
func MaskPII(input string) (masked string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[MASKED_EMAIL]")
	changed = changed || next != out
	out = next

	// Phone before generic id runs so phone numbers keep the more specific
	// marker.
	next = phonePattern.ReplaceAllString(out, "[MASKED_PHONE]")
	changed = changed || next != out
	out = next

	next = idLikePattern.ReplaceAllString(out, "[MASKED_ID]")
	changed = changed || next != out
	out = next

	return out, changed
}
