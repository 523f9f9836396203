// Package executor interprets orchestrator effects: it invokes providers,
// streams assistant speech as sentence segments, and feeds derived events
// back into the reducer through the event queue.
package executor

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
	"github.com/hoshino-robotics/wakaba/internal/protocol"
	"github.com/hoshino-robotics/wakaba/internal/speech"
)

// TTFAObservation is the time-to-first-audio sample recorded when a
// streamed or spoken utterance emitted at least one segment. Text is
// deliberately omitted.
type TTFAObservation struct {
	DispatchedAtMS     int64
	EmittedAtMS        int64
	UtteranceID        string
	ChatRequestID      string
	SegmentCount       int
	FirstSegmentLength int
}

// LatencyMS is the time from dispatch to the first emitted segment.
func (o TTFAObservation) LatencyMS() int64 {
	if o.EmittedAtMS < o.DispatchedAtMS {
		return 0
	}
	return o.EmittedAtMS - o.DispatchedAtMS
}

// MetricObserver receives TTFA samples when configured.
type MetricObserver interface {
	ObserveTTFA(obs TTFAObservation)
}

// SummaryWriter persists pending session-summary cards for staff review.
type SummaryWriter interface {
	WritePendingSessionSummary(ctx context.Context, summary orchestrator.SessionSummary) error
}

// PendingMemoryWriter persists consented memory candidates. It backs the
// STORE_WRITE_PENDING effect; executing that effect with no writer
// registered is a wiring bug and fails hard.
type PendingMemoryWriter func(ctx context.Context, candidate orchestrator.MemoryCandidate) error

// Executor owns the small mutable runtime record around the pure reducer:
// say sequence, current expression, and the stream correlation table. All
// clock reads go through the injected nowMS.
type Executor struct {
	chat     ChatCaller
	streamer ChatStreamer
	inner    InnerTasker
	stt      Transcriber

	sendKiosk func(protocol.Command)
	enqueue   func(ev orchestrator.Event, nowMS int64)
	nowMS     func() int64

	summaryWriter SummaryWriter
	pendingWriter PendingMemoryWriter

	observer      MetricObserver
	onStreamError func(requestID string, emittedSegments int)

	correlation *CorrelationTable

	mu                sync.Mutex
	saySeq            int
	currentExpression string
}

// Options collects the optional collaborators.
type Options struct {
	Streamer      ChatStreamer
	SummaryWriter SummaryWriter
	PendingWriter PendingMemoryWriter
	Observer      MetricObserver
	OnStreamError func(requestID string, emittedSegments int)
}

func New(chat ChatCaller, inner InnerTasker, stt Transcriber, sendKiosk func(protocol.Command), nowMS func() int64, opts Options) *Executor {
	return &Executor{
		chat:          chat,
		streamer:      opts.Streamer,
		inner:         inner,
		stt:           stt,
		sendKiosk:     sendKiosk,
		nowMS:         nowMS,
		summaryWriter: opts.SummaryWriter,
		pendingWriter: opts.PendingWriter,
		observer:      opts.Observer,
		onStreamError: opts.OnStreamError,
		correlation:   NewCorrelationTable(),
	}
}

// SetEnqueue wires the event queue callback. It must be called before any
// effect executes; the queue and executor reference each other, so the
// runtime closes the loop after constructing both.
func (x *Executor) SetEnqueue(enqueue func(ev orchestrator.Event, nowMS int64)) {
	x.enqueue = enqueue
}

// ExecuteEffects interprets effects in order and returns the follow-up
// events that resolved synchronously in this pass. Asynchronous provider
// completions arrive later through the enqueue callback.
func (x *Executor) ExecuteEffects(effects []orchestrator.Effect) []orchestrator.Event {
	var inline []orchestrator.Event
	for _, e := range effects {
		if evs := x.executeEffect(e); len(evs) > 0 {
			inline = append(inline, evs...)
		}
	}
	return inline
}

func (x *Executor) executeEffect(e orchestrator.Effect) []orchestrator.Event {
	switch e.Type {
	case orchestrator.EffectKioskRecordStart:
		x.sendKiosk(protocol.Command{Type: protocol.CmdRecordStart})
		return nil

	case orchestrator.EffectKioskRecordStop:
		x.sendKiosk(protocol.Command{
			Type: protocol.CmdRecordStop,
			Data: protocol.RecordStop{STTRequestID: e.RequestID},
		})
		return nil

	case orchestrator.EffectCallSTT:
		// Transcription starts when the kiosk uploads the recorded clip for
		// this request id (TranscribeSTT); the effect itself carries no audio.
		return nil

	case orchestrator.EffectCallChat:
		return x.executeCallChat(e)

	case orchestrator.EffectCallInnerTask:
		return x.executeCallInnerTask(e)

	case orchestrator.EffectSay:
		x.executeSay(e)
		return nil

	case orchestrator.EffectKioskToolCalls:
		calls := make([]protocol.ToolCallEnvelope, 0, len(e.ToolCalls))
		for _, tc := range e.ToolCalls {
			calls = append(calls, protocol.ToolCallEnvelope{
				ID:       tc.ID,
				Function: protocol.ToolCallFunction{Name: tc.Name},
			})
		}
		x.sendKiosk(protocol.Command{Type: protocol.CmdToolCalls, Data: protocol.ToolCalls{ToolCalls: calls}})
		return nil

	case orchestrator.EffectSetExpression:
		x.mu.Lock()
		x.currentExpression = e.Expression
		x.mu.Unlock()
		return nil

	case orchestrator.EffectPlayMotion:
		x.sendKiosk(protocol.Command{
			Type: protocol.CmdPlayMotion,
			Data: protocol.PlayMotion{MotionID: e.MotionID, MotionInstanceID: e.MotionInstanceID},
		})
		return nil

	case orchestrator.EffectSetMode, orchestrator.EffectShowConsentUI:
		// State-only: the kiosk observes these through snapshot broadcasts.
		return nil

	case orchestrator.EffectStoreWritePending:
		if x.pendingWriter == nil {
			// Wiring bug, fatal by contract: a consented memory must never be
			// silently dropped.
			log.Fatalf("executor: STORE_WRITE_PENDING with no pending-memory writer registered")
		}
		if e.Candidate != nil {
			if err := x.pendingWriter(context.Background(), *e.Candidate); err != nil {
				log.Printf("pending memory write failed: %v", err)
			}
		}
		return nil

	case orchestrator.EffectStoreWriteSessionSummaryPending:
		if x.summaryWriter != nil && e.Summary != nil {
			if err := x.summaryWriter.WritePendingSessionSummary(context.Background(), *e.Summary); err != nil {
				log.Printf("pending session summary write failed: %v", err)
			}
		}
		return nil

	default:
		// Unknown effect types are no-ops.
		return nil
	}
}

func (x *Executor) executeCallChat(e orchestrator.Effect) []orchestrator.Event {
	if x.streamer != nil {
		x.startStreamingChat(e.RequestID, e.Input)
		return nil
	}

	if isSynchronous(x.chat) {
		return []orchestrator.Event{x.callChat(context.Background(), e.RequestID, e.Input)}
	}
	go func() {
		ev := x.callChat(context.Background(), e.RequestID, e.Input)
		x.enqueue(ev, x.nowMS())
	}()
	return nil
}

func (x *Executor) callChat(ctx context.Context, requestID string, input orchestrator.ChatInput) orchestrator.Event {
	res, err := x.chat.Call(ctx, input)
	if err != nil {
		return orchestrator.Event{Type: orchestrator.EventChatFailed, RequestID: requestID}
	}
	return orchestrator.Event{
		Type:       orchestrator.EventChatResult,
		RequestID:  requestID,
		Text:       res.Text,
		Expression: res.Expression,
		MotionID:   res.MotionID,
		ToolCalls:  res.ToolCalls,
	}
}

func (x *Executor) executeCallInnerTask(e orchestrator.Effect) []orchestrator.Event {
	if isSynchronous(x.inner) {
		return []orchestrator.Event{x.callInnerTask(context.Background(), e.RequestID, e.Task)}
	}
	go func() {
		ev := x.callInnerTask(context.Background(), e.RequestID, e.Task)
		x.enqueue(ev, x.nowMS())
	}()
	return nil
}

func (x *Executor) callInnerTask(ctx context.Context, requestID string, task orchestrator.TaskInput) orchestrator.Event {
	out, err := x.inner.CallInnerTask(ctx, task)
	if err != nil {
		return orchestrator.Event{Type: orchestrator.EventInnerTaskFailed, RequestID: requestID}
	}
	return orchestrator.Event{Type: orchestrator.EventInnerTaskResult, RequestID: requestID, JSON: out}
}

// executeSay emits the speech envelope sequence for a SAY effect. When the
// streamer already emitted segments for the carried chat id (correlation
// hit), only the terminal speak envelope goes out.
func (x *Executor) executeSay(e orchestrator.Effect) {
	dispatchedAtMS := x.nowMS()
	streamAlreadyHandled := false
	if e.ChatRequestID != "" {
		streamAlreadyHandled = x.correlation.Delete(e.ChatRequestID, dispatchedAtMS)
	}

	x.mu.Lock()
	x.saySeq++
	utteranceID := fmt.Sprintf("say-%d", x.saySeq)
	expression := x.currentExpression
	x.mu.Unlock()

	chatID := e.ChatRequestID
	if chatID == "" {
		chatID = utteranceID
	}

	if !streamAlreadyHandled {
		segments := speech.Split(e.Text)
		x.sendKiosk(protocol.Command{
			Type: protocol.CmdSpeechStart,
			Data: protocol.SpeechStart{UtteranceID: utteranceID, ChatRequestID: chatID},
		})
		for i, seg := range segments {
			x.sendKiosk(protocol.Command{
				Type: protocol.CmdSpeechSegment,
				Data: protocol.SpeechSegment{
					UtteranceID:   utteranceID,
					ChatRequestID: chatID,
					SegmentIndex:  i,
					Text:          seg,
					IsLast:        i == len(segments)-1,
				},
			})
		}
		x.sendKiosk(protocol.Command{
			Type: protocol.CmdSpeechEnd,
			Data: protocol.SpeechEnd{UtteranceID: utteranceID, ChatRequestID: chatID},
		})
		if len(segments) > 0 && x.observer != nil {
			x.observer.ObserveTTFA(TTFAObservation{
				DispatchedAtMS:     dispatchedAtMS,
				EmittedAtMS:        x.nowMS(),
				UtteranceID:        utteranceID,
				ChatRequestID:      chatID,
				SegmentCount:       len(segments),
				FirstSegmentLength: len([]rune(segments[0])),
			})
		}
	}

	sayID := utteranceID
	if streamAlreadyHandled {
		sayID = e.ChatRequestID
	}
	x.sendKiosk(protocol.Command{
		Type: protocol.CmdSpeak,
		Data: protocol.Speak{SayID: sayID, Text: e.Text, Expression: expression},
	})
}

// TranscribeSTT is the audio-upload entry point; it is not reached via an
// effect. Synchronous providers report in the caller's goroutine,
// asynchronous ones through the event queue.
func (x *Executor) TranscribeSTT(req STTRequest) {
	run := func() {
		res, err := x.stt.Transcribe(context.Background(), req)
		if err != nil {
			x.enqueue(orchestrator.Event{Type: orchestrator.EventSTTFailed, RequestID: req.RequestID}, x.nowMS())
			return
		}
		x.enqueue(orchestrator.Event{Type: orchestrator.EventSTTResult, RequestID: req.RequestID, Text: res.Text}, x.nowMS())
	}
	if isSynchronous(x.stt) {
		run()
		return
	}
	go run()
}
