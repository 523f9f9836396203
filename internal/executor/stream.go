package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
	"github.com/hoshino-robotics/wakaba/internal/protocol"
	"github.com/hoshino-robotics/wakaba/internal/speech"
)

var errStreamSuperseded = errors.New("stream superseded by finalized chat")

// utteranceState tracks one streaming chat utterance. The mutex orders
// segment emission against finalization of the non-streaming call.
type utteranceState struct {
	mu sync.Mutex

	dispatchedAtMS int64
	buffer         string
	started        bool
	emittedCount   int
	firstEmittedMS int64
	firstLength    int
	finalized      bool

	gateOnce sync.Once
	gate     chan struct{}
}

// startStreamingChat runs the non-streaming chat call and the delta stream
// concurrently under a shared cancellation scope. Segments are spoken as
// soon as complete sentences accumulate; the final result re-enters the
// reducer afterwards. Stream failure is non-fatal to the call.
func (x *Executor) startStreamingChat(requestID string, input orchestrator.ChatInput) {
	st := &utteranceState{gate: make(chan struct{}), dispatchedAtMS: x.nowMS()}
	streamCtx, cancelStream := context.WithCancel(context.Background())

	var g errgroup.Group

	g.Go(func() error {
		ev := x.callChat(context.Background(), requestID, input)

		// Order finalization after the first streamed segment when one is
		// imminent: race the gate against a zero-delay tick so the final
		// result cannot observably preempt the first segment.
		select {
		case <-st.gate:
		default:
			timer := time.NewTimer(0)
			select {
			case <-st.gate:
			case <-timer.C:
			}
			timer.Stop()
		}

		st.mu.Lock()
		st.finalized = true
		emitted := st.emittedCount
		st.mu.Unlock()

		if emitted > 0 {
			x.correlation.Set(requestID, x.nowMS())
		}
		cancelStream()
		x.enqueue(ev, x.nowMS())
		return nil
	})

	g.Go(func() error {
		defer cancelStream()
		err := x.streamer.StreamChat(streamCtx, input, func(delta string) error {
			// Late chunks after cancellation are dropped without touching
			// their content.
			if streamCtx.Err() != nil {
				return streamCtx.Err()
			}
			if delta == "" {
				return nil
			}

			st.mu.Lock()
			defer st.mu.Unlock()
			if st.finalized && st.emittedCount == 0 {
				return errStreamSuperseded
			}
			st.buffer += delta
			complete, rest := speech.ExtractCompletePrefix(st.buffer)
			st.buffer = rest
			if complete == "" {
				return nil
			}
			for _, seg := range speech.Split(complete) {
				x.emitStreamSegmentLocked(st, requestID, seg, false)
			}
			return nil
		})
		x.finishStream(st, requestID, err)
		return nil
	})

	go func() { _ = g.Wait() }()
}

// finishStream runs whether the stream ended normally, errored, or was
// cancelled: it flushes the tail, closes the speech envelope, and records
// the TTFA observation.
func (x *Executor) finishStream(st *utteranceState, requestID string, streamErr error) {
	st.mu.Lock()

	supersededEmpty := st.finalized && st.emittedCount == 0
	if !supersededEmpty {
		if tail := strings.TrimSpace(st.buffer); tail != "" {
			st.buffer = ""
			segments := speech.Split(tail)
			for i, seg := range segments {
				x.emitStreamSegmentLocked(st, requestID, seg, i == len(segments)-1)
			}
		}
	}

	emitted := st.emittedCount
	if emitted > 0 {
		x.sendKiosk(protocol.Command{
			Type: protocol.CmdSpeechEnd,
			Data: protocol.SpeechEnd{UtteranceID: requestID, ChatRequestID: requestID},
		})
		if x.observer != nil {
			x.observer.ObserveTTFA(TTFAObservation{
				DispatchedAtMS:     st.dispatchedAtMS,
				EmittedAtMS:        st.firstEmittedMS,
				UtteranceID:        requestID,
				ChatRequestID:      requestID,
				SegmentCount:       emitted,
				FirstSegmentLength: st.firstLength,
			})
		}
	}
	st.mu.Unlock()

	if streamErr != nil &&
		!errors.Is(streamErr, context.Canceled) &&
		!errors.Is(streamErr, errStreamSuperseded) &&
		emitted == 0 &&
		x.onStreamError != nil {
		x.onStreamError(requestID, emitted)
	}
}

func (x *Executor) emitStreamSegmentLocked(st *utteranceState, requestID, text string, isLast bool) {
	if !st.started {
		st.started = true
		x.sendKiosk(protocol.Command{
			Type: protocol.CmdSpeechStart,
			Data: protocol.SpeechStart{UtteranceID: requestID, ChatRequestID: requestID},
		})
	}
	x.sendKiosk(protocol.Command{
		Type: protocol.CmdSpeechSegment,
		Data: protocol.SpeechSegment{
			UtteranceID:   requestID,
			ChatRequestID: requestID,
			SegmentIndex:  st.emittedCount,
			Text:          text,
			IsLast:        isLast,
		},
	})
	if st.emittedCount == 0 {
		st.firstEmittedMS = x.nowMS()
		st.firstLength = len([]rune(text))
		st.gateOnce.Do(func() { close(st.gate) })
	}
	st.emittedCount++
}
