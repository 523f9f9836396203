package executor

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
	"github.com/hoshino-robotics/wakaba/internal/protocol"
)

// commandRecorder collects kiosk commands across goroutines.
type commandRecorder struct {
	mu   sync.Mutex
	cmds []protocol.Command
}

func (r *commandRecorder) send(c protocol.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, c)
}

func (r *commandRecorder) all() []protocol.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

func (r *commandRecorder) types() []protocol.CommandType {
	var out []protocol.CommandType
	for _, c := range r.all() {
		out = append(out, c.Type)
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type syncChat struct {
	result ChatResult
	err    error
}

func (c *syncChat) Call(ctx context.Context, input orchestrator.ChatInput) (ChatResult, error) {
	return c.result, c.err
}
func (c *syncChat) Synchronous() bool { return true }

type syncInner struct {
	out string
	err error
}

func (n *syncInner) CallInnerTask(ctx context.Context, task orchestrator.TaskInput) (string, error) {
	return n.out, n.err
}
func (n *syncInner) Synchronous() bool { return true }

type syncSTT struct {
	text string
	err  error
}

func (s *syncSTT) Transcribe(ctx context.Context, req STTRequest) (STTResult, error) {
	return STTResult{Text: s.text}, s.err
}
func (s *syncSTT) Synchronous() bool { return true }

type ttfaRecorder struct {
	mu  sync.Mutex
	obs []TTFAObservation
}

func (r *ttfaRecorder) ObserveTTFA(o TTFAObservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, o)
}

func (r *ttfaRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.obs)
}

func newTestExecutor(t *testing.T, rec *commandRecorder, opts Options) *Executor {
	t.Helper()
	x := New(&syncChat{}, &syncInner{}, &syncSTT{}, rec.send, func() int64 { return 42_000 }, opts)
	x.SetEnqueue(func(ev orchestrator.Event, nowMS int64) {})
	return x
}

func TestExecuteSaySegments(t *testing.T) {
	rec := &commandRecorder{}
	obs := &ttfaRecorder{}
	x := newTestExecutor(t, rec, Options{Observer: obs})

	x.ExecuteEffects([]orchestrator.Effect{{
		Type:          orchestrator.EffectSay,
		Text:          "きょうはこうえんにいったよ。たのしかったね！",
		ChatRequestID: "chat-7",
	}})

	cmds := rec.all()
	if len(cmds) != 5 {
		t.Fatalf("commands = %d (%v), want 5", len(cmds), rec.types())
	}
	if cmds[0].Type != protocol.CmdSpeechStart {
		t.Fatalf("cmds[0] = %s, want speech.start", cmds[0].Type)
	}
	start := cmds[0].Data.(protocol.SpeechStart)
	if start.ChatRequestID != "chat-7" || start.UtteranceID != "say-1" {
		t.Fatalf("speech.start = %+v", start)
	}

	seg0 := cmds[1].Data.(protocol.SpeechSegment)
	seg1 := cmds[2].Data.(protocol.SpeechSegment)
	if seg0.SegmentIndex != 0 || seg0.IsLast {
		t.Fatalf("segment 0 = %+v", seg0)
	}
	if seg1.SegmentIndex != 1 || !seg1.IsLast {
		t.Fatalf("segment 1 = %+v, want is_last", seg1)
	}
	if cmds[3].Type != protocol.CmdSpeechEnd {
		t.Fatalf("cmds[3] = %s, want speech.end", cmds[3].Type)
	}

	speak := cmds[4].Data.(protocol.Speak)
	if cmds[4].Type != protocol.CmdSpeak || speak.SayID != "say-1" {
		t.Fatalf("speak = %+v", speak)
	}
	if obs.count() != 1 {
		t.Fatalf("TTFA observations = %d, want 1", obs.count())
	}
}

func TestExecuteSayBlankText(t *testing.T) {
	rec := &commandRecorder{}
	obs := &ttfaRecorder{}
	x := newTestExecutor(t, rec, Options{Observer: obs})

	x.ExecuteEffects([]orchestrator.Effect{{Type: orchestrator.EffectSay, Text: "   "}})

	types := rec.types()
	want := []protocol.CommandType{protocol.CmdSpeechStart, protocol.CmdSpeechEnd, protocol.CmdSpeak}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types[%d] = %s, want %s", i, types[i], want[i])
		}
	}
	if obs.count() != 0 {
		t.Fatalf("TTFA observed for empty utterance")
	}
}

func TestExecuteSayStreamCorrelationShortcut(t *testing.T) {
	rec := &commandRecorder{}
	x := newTestExecutor(t, rec, Options{})
	x.correlation.Set("chat-9", 42_000)

	x.ExecuteEffects([]orchestrator.Effect{{
		Type:          orchestrator.EffectSay,
		Text:          "すでにはなしたないようだよ。",
		ChatRequestID: "chat-9",
	}})

	cmds := rec.all()
	if len(cmds) != 1 || cmds[0].Type != protocol.CmdSpeak {
		t.Fatalf("commands = %v, want single speak", rec.types())
	}
	speak := cmds[0].Data.(protocol.Speak)
	if speak.SayID != "chat-9" {
		t.Fatalf("say_id = %q, want chat-9", speak.SayID)
	}

	// The correlation entry is consumed: a second SAY for the same id
	// speaks in full.
	x.ExecuteEffects([]orchestrator.Effect{{
		Type:          orchestrator.EffectSay,
		Text:          "もういちどはなすよ。",
		ChatRequestID: "chat-9",
	}})
	if n := len(rec.all()); n != 1+4 {
		t.Fatalf("commands after second SAY = %d, want 5", n)
	}
}

func TestExpressionAppliedToSpeak(t *testing.T) {
	rec := &commandRecorder{}
	x := newTestExecutor(t, rec, Options{})

	x.ExecuteEffects([]orchestrator.Effect{
		{Type: orchestrator.EffectSetExpression, Expression: "happy"},
		{Type: orchestrator.EffectSay, Text: "うれしいことがあったんだ。"},
	})

	cmds := rec.all()
	speak := cmds[len(cmds)-1].Data.(protocol.Speak)
	if speak.Expression != "happy" {
		t.Fatalf("expression = %q, want happy", speak.Expression)
	}
}

func TestSynchronousChatReturnsInlineEvent(t *testing.T) {
	rec := &commandRecorder{}
	chat := &syncChat{result: ChatResult{Text: "こんにちは！", Expression: "happy"}}
	x := New(chat, &syncInner{}, &syncSTT{}, rec.send, func() int64 { return 0 }, Options{})

	events := x.ExecuteEffects([]orchestrator.Effect{{
		Type:      orchestrator.EffectCallChat,
		RequestID: "chat-3",
	}})
	if len(events) != 1 {
		t.Fatalf("inline events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Type != orchestrator.EventChatResult || ev.RequestID != "chat-3" || ev.Text != "こんにちは！" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestSynchronousChatFailure(t *testing.T) {
	chat := &syncChat{err: errors.New("provider down")}
	x := New(chat, &syncInner{}, &syncSTT{}, (&commandRecorder{}).send, func() int64 { return 0 }, Options{})

	events := x.ExecuteEffects([]orchestrator.Effect{{Type: orchestrator.EffectCallChat, RequestID: "chat-3"}})
	if len(events) != 1 || events[0].Type != orchestrator.EventChatFailed || events[0].RequestID != "chat-3" {
		t.Fatalf("events = %+v, want CHAT_FAILED chat-3", events)
	}
}

func TestSynchronousInnerTask(t *testing.T) {
	inner := &syncInner{out: `{"decision":"yes"}`}
	x := New(&syncChat{}, inner, &syncSTT{}, (&commandRecorder{}).send, func() int64 { return 0 }, Options{})

	events := x.ExecuteEffects([]orchestrator.Effect{{
		Type:      orchestrator.EffectCallInnerTask,
		RequestID: "inner-4",
		Task:      orchestrator.TaskInput{Kind: orchestrator.TaskConsentDecision},
	}})
	if len(events) != 1 || events[0].Type != orchestrator.EventInnerTaskResult {
		t.Fatalf("events = %+v", events)
	}
	if events[0].JSON != `{"decision":"yes"}` {
		t.Fatalf("json = %q", events[0].JSON)
	}
}

func TestTranscribeSTT(t *testing.T) {
	var mu sync.Mutex
	var got []orchestrator.Event

	x := New(&syncChat{}, &syncInner{}, &syncSTT{text: "こんにちは"}, (&commandRecorder{}).send, func() int64 { return 0 }, Options{})
	x.SetEnqueue(func(ev orchestrator.Event, nowMS int64) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})

	x.TranscribeSTT(STTRequest{RequestID: "stt-1", WAV: []byte{1, 2}})
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Type != orchestrator.EventSTTResult || got[0].Text != "こんにちは" {
		t.Fatalf("events = %+v", got)
	}
}

func TestTranscribeSTTFailure(t *testing.T) {
	var mu sync.Mutex
	var got []orchestrator.Event

	x := New(&syncChat{}, &syncInner{}, &syncSTT{err: errors.New("no audio")}, (&commandRecorder{}).send, func() int64 { return 0 }, Options{})
	x.SetEnqueue(func(ev orchestrator.Event, nowMS int64) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})

	x.TranscribeSTT(STTRequest{RequestID: "stt-1"})
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Type != orchestrator.EventSTTFailed || got[0].RequestID != "stt-1" {
		t.Fatalf("events = %+v", got)
	}
}

func TestRecordCommands(t *testing.T) {
	rec := &commandRecorder{}
	x := newTestExecutor(t, rec, Options{})

	x.ExecuteEffects([]orchestrator.Effect{
		{Type: orchestrator.EffectKioskRecordStart},
		{Type: orchestrator.EffectKioskRecordStop, RequestID: "stt-5"},
	})

	cmds := rec.all()
	if cmds[0].Type != protocol.CmdRecordStart {
		t.Fatalf("cmds[0] = %s", cmds[0].Type)
	}
	stop := cmds[1].Data.(protocol.RecordStop)
	if cmds[1].Type != protocol.CmdRecordStop || stop.STTRequestID != "stt-5" {
		t.Fatalf("record_stop = %+v", stop)
	}
}

func TestStoreWriteFailureLoggedNonFatal(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	rec := &commandRecorder{}
	failingWriter := func(context.Context, orchestrator.MemoryCandidate) error {
		return errors.New("disk full")
	}
	x := newTestExecutor(t, rec, Options{PendingWriter: failingWriter})

	x.ExecuteEffects([]orchestrator.Effect{
		{
			Type:      orchestrator.EffectStoreWritePending,
			Candidate: &orchestrator.MemoryCandidate{Kind: orchestrator.MemoryKindFood, Value: "いちご"},
		},
		{Type: orchestrator.EffectSay, Text: "わすれないよ。"},
	})

	if !strings.Contains(buf.String(), "pending memory write failed") {
		t.Fatalf("write failure not logged: %q", buf.String())
	}
	// The failure is non-fatal: the following SAY still went out.
	if len(rec.all()) == 0 {
		t.Fatalf("no commands after failed store write")
	}
}

type failingSummaryWriter struct{}

func (failingSummaryWriter) WritePendingSessionSummary(context.Context, orchestrator.SessionSummary) error {
	return errors.New("disk full")
}

func TestSummaryWriteFailureLogged(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	x := newTestExecutor(t, &commandRecorder{}, Options{SummaryWriter: failingSummaryWriter{}})
	x.ExecuteEffects([]orchestrator.Effect{{
		Type:    orchestrator.EffectStoreWriteSessionSummaryPending,
		Summary: &orchestrator.SessionSummary{Title: "要約", Summary: "きょうのこと。"},
	}})

	if !strings.Contains(buf.String(), "pending session summary write failed") {
		t.Fatalf("write failure not logged: %q", buf.String())
	}
}

func TestToolCallsDropArguments(t *testing.T) {
	rec := &commandRecorder{}
	x := newTestExecutor(t, rec, Options{})

	x.ExecuteEffects([]orchestrator.Effect{{
		Type:      orchestrator.EffectKioskToolCalls,
		ToolCalls: []orchestrator.ToolCall{{ID: "call-1", Name: "take_photo"}},
	}})

	tc := rec.all()[0].Data.(protocol.ToolCalls)
	if len(tc.ToolCalls) != 1 || tc.ToolCalls[0].Function.Name != "take_photo" || tc.ToolCalls[0].ID != "call-1" {
		t.Fatalf("tool calls = %+v", tc)
	}
}
