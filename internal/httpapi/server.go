// Package httpapi exposes the kiosk and staff HTTP surfaces: SSE command
// fan-out, push-to-talk event intake, audio upload, speech synthesis, and
// the staff review console. Both surfaces are LAN-only.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/hoshino-robotics/wakaba/internal/config"
	"github.com/hoshino-robotics/wakaba/internal/executor"
	"github.com/hoshino-robotics/wakaba/internal/observability"
	"github.com/hoshino-robotics/wakaba/internal/orchestrator"
	"github.com/hoshino-robotics/wakaba/internal/policy"
	"github.com/hoshino-robotics/wakaba/internal/session"
	"github.com/hoshino-robotics/wakaba/internal/store"
	"github.com/hoshino-robotics/wakaba/internal/tts"
)

const staffCookieName = "wakaba_staff"

type Server struct {
	cfg      config.Config
	runtime  *executor.Runtime
	exec     *executor.Executor
	sessions *session.Manager
	store    store.Store
	tts      tts.Synthesizer
	metrics  *observability.Metrics
	hub      *Hub
	static   http.Handler

	mu        sync.Mutex
	lastState orchestrator.State
}

func New(cfg config.Config, runtime *executor.Runtime, exec *executor.Executor, sessions *session.Manager, st store.Store, synth tts.Synthesizer, metrics *observability.Metrics, hub *Hub) *Server {
	s := &Server{
		cfg:      cfg,
		runtime:  runtime,
		exec:     exec,
		sessions: sessions,
		store:    st,
		tts:      synth,
		metrics:  metrics,
		hub:      hub,
		static:   newStaticHandler(),
	}
	s.lastState = runtime.Snapshot()
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.lanOnly)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/api/kiosk", func(r chi.Router) {
		r.Get("/events", s.handleKioskEvents)
		r.Post("/event", s.handleKioskEvent)
		r.Post("/audio", s.handleKioskAudio)
		r.Post("/tts", s.handleKioskTTS)
	})

	r.Route("/api/staff", func(r chi.Router) {
		r.Post("/login", s.handleStaffLogin)
		r.Post("/logout", s.handleStaffLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.staffAuth)
			r.Get("/events", s.handleStaffEvents)
			r.Post("/event", s.handleStaffEvent)
			r.Get("/memories/pending", s.handlePendingMemories)
			r.Post("/memories/{id}/confirm", s.resolveMemory(true))
			r.Post("/memories/{id}/deny", s.resolveMemory(false))
			r.Get("/summaries/pending", s.handlePendingSummaries)
			r.Post("/summaries/{id}/confirm", s.resolveSummary(true))
			r.Post("/summaries/{id}/deny", s.resolveSummary(false))
			r.Get("/perf", s.handlePerf)
		})
	})

	return r
}

// OnState is the runtime state listener: it records the snapshot and
// republishes both surfaces.
func (s *Server) OnState(st orchestrator.State) {
	s.mu.Lock()
	s.lastState = st
	s.mu.Unlock()
	s.publishSnapshots()
}

func (s *Server) lanOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !policy.AllowLANRemoteAddr(r.RemoteAddr) {
			respondError(w, http.StatusForbidden, "lan_only", "this service only accepts LAN clients")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) staffAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(staffCookieName)
		if err != nil || s.sessions.Touch(cookie.Value) != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "staff session required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}
	if strings.TrimSpace(s.cfg.StaffPassword) == "" {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "WF_STAFF_PASSWORD is not set")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// stateSnapshot is the kiosk-facing view of the orchestrator state.
type stateSnapshot struct {
	Mode             orchestrator.Mode  `json:"mode"`
	Phase            orchestrator.Phase `json:"phase"`
	EmergencyStopped bool               `json:"emergency_stopped"`
	ConsentPending   bool               `json:"consent_pending"`
}

// staffSnapshot extends the kiosk view with staff-only fields.
type staffSnapshot struct {
	stateSnapshot
	PersonalName     string `json:"personal_name,omitempty"`
	PendingMemories  int    `json:"pending_memories"`
	PendingSummaries int    `json:"pending_summaries"`
}

func (s *Server) publishSnapshots() {
	s.mu.Lock()
	st := s.lastState
	s.mu.Unlock()

	base := stateSnapshot{
		Mode:             st.Mode,
		Phase:            st.Phase,
		EmergencyStopped: st.EmergencyStopped,
		ConsentPending:   st.ConsentPending(),
	}
	s.hub.PublishSnapshot(SurfaceKiosk, base)

	memories, summaries := s.pendingCounts(context.Background())
	s.hub.PublishSnapshot(SurfaceStaff, staffSnapshot{
		stateSnapshot:    base,
		PersonalName:     st.PersonalName,
		PendingMemories:  memories,
		PendingSummaries: summaries,
	})
	if s.metrics != nil {
		s.metrics.PendingReviews.WithLabelValues("memories").Set(float64(memories))
		s.metrics.PendingReviews.WithLabelValues("summaries").Set(float64(summaries))
	}
}

func (s *Server) pendingCounts(ctx context.Context) (int, int) {
	memories, err := s.store.ListPendingMemories(ctx)
	if err != nil {
		memories = nil
	}
	summaries, err := s.store.ListPendingSessionSummaries(ctx)
	if err != nil {
		summaries = nil
	}
	return len(memories), len(summaries)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func jsonMarshal(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}
