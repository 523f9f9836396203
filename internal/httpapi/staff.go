package httpapi

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hoshino-robotics/wakaba/internal/observability"
	"github.com/hoshino-robotics/wakaba/internal/protocol"
	"github.com/hoshino-robotics/wakaba/internal/store"
)

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleStaffLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	configured := s.cfg.StaffPassword
	if strings.TrimSpace(configured) == "" {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "staff login is not configured")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(configured)) != 1 {
		respondError(w, http.StatusUnauthorized, "bad_password", "password mismatch")
		return
	}

	sess := s.sessions.Create()
	if s.metrics != nil {
		s.metrics.StaffSessions.Set(float64(s.sessions.ActiveCount()))
	}
	http.SetCookie(w, &http.Cookie{
		Name:     staffCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL() / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"logged_in":  true,
		"expires_ms": s.sessions.TTL().Milliseconds(),
	})
}

func (s *Server) handleStaffLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(staffCookieName); err == nil {
		s.sessions.Revoke(cookie.Value)
	}
	if s.metrics != nil {
		s.metrics.StaffSessions.Set(float64(s.sessions.ActiveCount()))
	}
	http.SetCookie(w, &http.Cookie{
		Name:     staffCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	respondJSON(w, http.StatusOK, map[string]any{"logged_in": false})
}

func (s *Server) handleStaffEvents(w http.ResponseWriter, r *http.Request) {
	st := s.runtime.Snapshot()
	memories, summaries := s.pendingCounts(r.Context())
	initial := snapshotMessage(staffSnapshot{
		stateSnapshot: stateSnapshot{
			Mode:             st.Mode,
			Phase:            st.Phase,
			EmergencyStopped: st.EmergencyStopped,
			ConsentPending:   st.ConsentPending(),
		},
		PersonalName:     st.PersonalName,
		PendingMemories:  memories,
		PendingSummaries: summaries,
	})
	s.hub.ServeStream(w, r, SurfaceStaff, initial)
}

func (s *Server) handleStaffEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	ev, err := protocol.ParseStaffEvent(body)
	if err != nil {
		if errors.Is(err, protocol.ErrUnsupportedType) {
			respondError(w, http.StatusBadRequest, "unsupported_type", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.OrchestratorEvents.WithLabelValues(string(ev.Type)).Inc()
	}
	s.runtime.Enqueue(ev, time.Now().UnixMilli())
	respondJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (s *Server) handlePendingMemories(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListPendingMemories(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"memories": items})
}

func (s *Server) resolveMemory(confirm bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.store.ResolvePendingMemory(r.Context(), id, confirm); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "not_found", "no pending memory with this id")
				return
			}
			respondError(w, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		s.publishSnapshots()
		respondJSON(w, http.StatusOK, map[string]any{"id": id, "confirmed": confirm})
	}
}

func (s *Server) handlePendingSummaries(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListPendingSessionSummaries(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"summaries": items})
}

func (s *Server) resolveSummary(confirm bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.store.ResolvePendingSessionSummary(r.Context(), id, confirm); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "not_found", "no pending summary with this id")
				return
			}
			respondError(w, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		s.publishSnapshots()
		respondJSON(w, http.StatusOK, map[string]any{"id": id, "confirmed": confirm})
	}
}

func (s *Server) handlePerf(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, observability.LatencySnapshot{
			GeneratedAt: time.Now().UTC(),
			TTFA:        observability.LatencyStats{Stage: observability.StageTTFA},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.PerfSnapshot())
}
