package speech

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   \n ", nil},
		{"single sentence", "きょうはいい天気だね。", []string{"きょうはいい天気だね。"}},
		{"two sentences", "きょうはいい天気だね。こうえんにあそびにいこうよ！", []string{"きょうはいい天気だね。", "こうえんにあそびにいこうよ！"}},
		{"ascii terminators", "That sounds fun! Where should we go?", []string{"That sounds fun!", "Where should we go?"}},
		{"no terminator", "ねえねえ、きいて", []string{"ねえねえ、きいて"}},
		{"decimal stays whole", "3.14 is pi.", []string{"3.14 is pi."}},
		{"single capitals stay whole", "U.S.A. today.", []string{"U.S.A. today."}},
		{"abbreviation stays whole", "Dr. Smith arrived today. Everyone was happy!", []string{"Dr. Smith arrived today.", "Everyone was happy!"}},
		{"short head merges forward", "123. next.", []string{"123.next."}},
		{"short tail merges backward", "きょうはたくさんあそんだね。うん。", []string{"きょうはたくさんあそんだね。うん。"}},
		{"glued period is not a boundary", "see example.com for details.", []string{"see example.com for details."}},
		{"surrounding whitespace trimmed", "  そろそろかえろうか。  ", []string{"そろそろかえろうか。"}},
	}
	for _, tc := range tests {
		got := Split(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: Split(%q) = %#v, want %#v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestSplitSegmentsNonEmptyAndOrdered(t *testing.T) {
	in := "ひとつめのぶんしょうだよ。ふたつめのぶんしょうだよ！みっつめはどうかな？"
	got := Split(in)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (%#v)", len(got), got)
	}
	for i, seg := range got {
		if seg == "" {
			t.Fatalf("segment %d empty", i)
		}
		if len([]rune(seg)) < MinSegmentLen {
			t.Fatalf("segment %d = %q shorter than %d", i, seg, MinSegmentLen)
		}
	}
}

func TestExtractCompletePrefix(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		complete string
		rest     string
	}{
		{"no terminator", "きょうはね", "", "きょうはね"},
		{"one complete", "きょうはいい天気だね。それでね", "きょうはいい天気だね。", "それでね"},
		{"ends at terminator", "わかった！", "わかった！", ""},
		{"trailing period is ambiguous", "It costs 3.", "", "It costs 3."},
		{"interior period splits", "Hello world. And then", "Hello world.", " And then"},
		{"decimal not a boundary", "値段は3.14です", "", "値段は3.14です"},
		{"multiple terminators take the last", "うん。そうだね！でも", "うん。そうだね！", "でも"},
	}
	for _, tc := range tests {
		complete, rest := ExtractCompletePrefix(tc.in)
		if complete != tc.complete || rest != tc.rest {
			t.Fatalf("%s: ExtractCompletePrefix(%q) = %q, %q, want %q, %q",
				tc.name, tc.in, complete, rest, tc.complete, tc.rest)
		}
	}
}

func TestStreamingChunksMatchBatchSplit(t *testing.T) {
	full := "きょうはこうえんであそんだね。すべりだいがたのしかった！またいこうね。"
	chunks := []string{"きょうはこうえんで", "あそんだね。すべりだい", "がたのしかった！また", "いこうね。"}

	var buffer string
	var streamed []string
	for _, c := range chunks {
		buffer += c
		complete, rest := ExtractCompletePrefix(buffer)
		buffer = rest
		if complete != "" {
			streamed = append(streamed, Split(complete)...)
		}
	}
	if buffer != "" {
		streamed = append(streamed, Split(buffer)...)
	}

	if !reflect.DeepEqual(streamed, Split(full)) {
		t.Fatalf("streamed = %#v, batch = %#v", streamed, Split(full))
	}
}
