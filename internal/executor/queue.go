package executor

import (
	"log"
	"sync"

	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
)

// Runtime serializes every reducer invocation through a single cooperative
// queue. Enqueue from any goroutine is safe; recursive enqueues issued
// while draining append to the queue without nesting the drain.
type Runtime struct {
	mu       sync.Mutex
	draining bool
	queue    []queuedEvent

	state orchestrator.State
	cfg   orchestrator.Config
	exec  *Executor

	// onState receives the post-drain snapshot for broadcast.
	onState func(orchestrator.State)
}

type queuedEvent struct {
	ev    orchestrator.Event
	nowMS int64
}

func NewRuntime(cfg orchestrator.Config, exec *Executor) *Runtime {
	r := &Runtime{
		state: orchestrator.NewState(),
		cfg:   cfg,
		exec:  exec,
	}
	exec.SetEnqueue(r.Enqueue)
	return r
}

// SetStateListener registers the snapshot callback invoked after each
// drain. It is called without the runtime lock held.
func (r *Runtime) SetStateListener(fn func(orchestrator.State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onState = fn
}

// Snapshot returns the current reducer state.
func (r *Runtime) Snapshot() orchestrator.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Enqueue appends ev and drains the queue unless a drain is already in
// progress on this or another goroutine.
func (r *Runtime) Enqueue(ev orchestrator.Event, nowMS int64) {
	r.mu.Lock()
	r.queue = append(r.queue, queuedEvent{ev: ev, nowMS: nowMS})
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true

	for len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.processEvent(next)
	}
	r.draining = false

	snapshot := r.state
	listener := r.onState
	r.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
}

// processEvent applies one event and executes its effects. A panic while
// handling a single event is logged and swallowed; the queue continues.
// Called with the runtime lock held.
func (r *Runtime) processEvent(q queuedEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("event %s failed: %v", q.ev.Type, rec)
		}
	}()

	next, effects := orchestrator.Reduce(r.state, q.ev, q.nowMS, r.cfg)
	r.state = next
	if len(effects) == 0 {
		return
	}
	for _, ev := range r.exec.ExecuteEffects(effects) {
		r.queue = append(r.queue, queuedEvent{ev: ev, nowMS: q.nowMS})
	}
}
