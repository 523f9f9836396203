// Package speech segments assistant text into speakable sentence units.
package speech

import (
	"strings"
	"unicode"
)

// MinSegmentLen is the minimum rune length of an emitted segment. Shorter
// fragments are merged into a neighbor so TTS is not fed stubs like "123.".
const MinSegmentLen = 5

// dottedAbbreviations are lowercase tokens whose trailing period never ends
// a sentence.
var dottedAbbreviations = map[string]bool{
	"dr":   true,
	"mr":   true,
	"mrs":  true,
	"ms":   true,
	"prof": true,
	"st":   true,
	"vs":   true,
	"etc":  true,
	"no":   true,
}

// Split segments text into ordered non-empty speech segments. Terminators
// are 。！？.!?; a period between digits, after a single capital letter, or
// after a dotted abbreviation does not split. Segments shorter than
// MinSegmentLen merge into the prior segment, or the next one when there is
// no prior; whitespace between merged fragments is collapsed.
func Split(text string) []string {
	r := []rune(text)
	var raw []string
	start := 0
	for i := 0; i < len(r); i++ {
		if !splitsAt(r, i, true) {
			continue
		}
		seg := strings.TrimSpace(string(r[start : i+1]))
		if seg != "" {
			raw = append(raw, seg)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(r[start:])); tail != "" {
		raw = append(raw, tail)
	}
	return mergeShort(raw)
}

// ExtractCompletePrefix returns the buffer prefix through its last
// unambiguous sentence terminator, and the remainder to keep buffered for
// the next streamed chunk. A trailing period is ambiguous mid-stream (it
// could be a decimal or abbreviation continued by the next chunk) and stays
// in the remainder.
func ExtractCompletePrefix(buffer string) (complete, rest string) {
	r := []rune(buffer)
	last := -1
	for i := 0; i < len(r); i++ {
		if splitsAt(r, i, false) {
			last = i
		}
	}
	if last < 0 {
		return "", buffer
	}
	return string(r[:last+1]), string(r[last+1:])
}

// splitsAt reports whether a sentence ends after r[i]. atEnd marks the text
// as final, which confirms an otherwise ambiguous trailing period.
func splitsAt(r []rune, i int, atEnd bool) bool {
	switch r[i] {
	case '。', '！', '？', '!', '?':
		return true
	case '.':
	default:
		return false
	}

	// Decimal point.
	if i > 0 && i+1 < len(r) && unicode.IsDigit(r[i-1]) && unicode.IsDigit(r[i+1]) {
		return false
	}

	// Letter token directly before the period: single capitals (U.S.A.) and
	// dotted abbreviations (Dr.) continue the sentence.
	tokenStart := i
	for tokenStart > 0 && unicode.IsLetter(r[tokenStart-1]) {
		tokenStart--
	}
	token := r[tokenStart:i]
	if len(token) == 1 && unicode.IsUpper(token[0]) {
		return false
	}
	if dottedAbbreviations[strings.ToLower(string(token))] {
		return false
	}

	if i == len(r)-1 {
		return atEnd
	}
	next := r[i+1]
	if unicode.IsSpace(next) {
		return true
	}
	switch next {
	case ')', '」', '』', '"', '\'', ']':
		return true
	}
	// A period glued to following text (URLs, merged fragments) is not a
	// sentence boundary.
	return false
}

func mergeShort(segs []string) []string {
	var out []string
	for i := 0; i < len(segs); i++ {
		seg := segs[i]
		if len([]rune(seg)) >= MinSegmentLen {
			out = append(out, seg)
			continue
		}
		if len(out) > 0 {
			out[len(out)-1] += seg
			continue
		}
		if i+1 < len(segs) {
			segs[i+1] = seg + segs[i+1]
			continue
		}
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
