package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hoshino-robotics/wakaba/internal/audio"
	"github.com/hoshino-robotics/wakaba/internal/executor"
	"github.com/hoshino-robotics/wakaba/internal/protocol"
)

// maxClipBytes bounds a push-to-talk upload (~5 minutes of 16 kHz mono).
const maxClipBytes = 10 << 20

func (s *Server) handleKioskEvents(w http.ResponseWriter, r *http.Request) {
	st := s.runtime.Snapshot()
	initial := snapshotMessage(stateSnapshot{
		Mode:             st.Mode,
		Phase:            st.Phase,
		EmergencyStopped: st.EmergencyStopped,
		ConsentPending:   st.ConsentPending(),
	})
	s.hub.ServeStream(w, r, SurfaceKiosk, initial)
}

func (s *Server) handleKioskEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	ev, err := protocol.ParseKioskEvent(body)
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

// handleKioskAudio receives the recorded clip for the pending STT request.
// The multipart form carries the request id issued by record_stop; an id
// that does not match the in-flight slot is refused.
func (s *Server) handleKioskAudio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxClipBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}
	requestID := strings.TrimSpace(r.FormValue("request_id"))
	if requestID == "" {
		respondError(w, http.StatusBadRequest, "missing_request_id", "form field request_id is required")
		return
	}

	st := s.runtime.Snapshot()
	if st.InFlight.STT == "" || st.InFlight.STT != requestID {
		respondError(w, http.StatusConflict, "stale_request_id", "no transcription pending for this request id")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_file", "form file field is required")
		return
	}
	defer file.Close()

	wav, err := io.ReadAll(io.LimitReader(file, maxClipBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read_failed", err.Error())
		return
	}
	if len(wav) > maxClipBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "clip_too_large", "audio clip exceeds the upload limit")
		return
	}
	if _, err := audio.ValidateWAV(wav); err != nil {
		respondError(w, http.StatusUnsupportedMediaType, "invalid_wav", err.Error())
		return
	}

	s.exec.TranscribeSTT(executor.STTRequest{RequestID: requestID, Mode: st.Mode, WAV: wav})
	respondJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "request_id": requestID})
}

type ttsRequest struct {
	SayID string `json:"say_id"`
	Text  string `json:"text"`
}

// handleKioskTTS synthesizes one speak envelope into a WAV clip.
func (s *Server) handleKioskTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "missing_text", "text is required")
		return
	}
	wav, err := s.tts.Synthesize(r.Context(), req.Text)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ProviderErrors.WithLabelValues("tts", "synthesize_failed").Inc()
		}
		respondError(w, http.StatusBadGateway, "tts_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	if req.SayID != "" {
		w.Header().Set("X-Say-Id", req.SayID)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}

func snapshotMessage(snapshot any) []sseMessage {
	data, err := jsonMarshal(snapshot)
	if err != nil {
		return nil
	}
	return []sseMessage{{event: "state", data: data}}
}
