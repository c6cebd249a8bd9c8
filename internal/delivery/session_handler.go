package delivery

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/Vovarama1992/voice_mail/internal/session"
)

const heartbeat = 15 * time.Second

type SessionHandler struct {
	sessions *session.Manager
	log      *logger.ZapLogger
}

func NewSessionHandler(sessions *session.Manager, log *logger.ZapLogger) *SessionHandler {
	return &SessionHandler{sessions: sessions, log: log}
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) fail(w http.ResponseWriter, msg string, err error) {
	h.log.Log(logger.LogEntry{Level: "warn", Message: msg, Error: err})
	writeError(w, err)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]any{"id": s.ID})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events streams session messages as server-sent events until the page
// disconnects or the session closes.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.Events():
			data, err := json.Marshal(msg.Data)
			if err != nil {
				h.log.Log(logger.LogEntry{Level: "error", Message: "encode session event", Error: err})
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data)
			flusher.Flush()
			s.Touch()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
			s.Touch()
		case <-s.Closed():
			fmt.Fprint(w, "event: closed\ndata: {}\n\n")
			flusher.Flush()
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *SessionHandler) Microphone(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		RecordingID string `json:"recordingId"`
		Granted     bool   `json:"granted"`
		Error       string `json:"error"`
	}
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Mic.Ack(req.RecordingID, req.Granted, req.Error); err != nil {
		h.fail(w, "microphone ack", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Audio(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		RecordingID string `json:"recordingId"`
		Audio       string `json:"audio"`
	}
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Mic.Deliver(req.RecordingID, req.Audio); err != nil {
		h.fail(w, "audio upload", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) PlaybackEnded(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Error string `json:"error"`
	}
	// an empty body is a clean end
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := s.Output.Ended(chi.URLParam(r, "playback_id"), req.Error); err != nil {
		h.fail(w, "playback ended", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Navigation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if err := readJSON(w, r, &req); err != nil || req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	s.SetPath(req.Path)
	writeJSON(w, http.StatusOK, map[string]any{"path": req.Path, "listening": s.Commands.State()})
}

// Listening enables or disables the command loop; without a body it
// toggles.
func (h *SessionHandler) Listening(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	var err error
	switch {
	case req.Enabled == nil:
		err = s.Commands.Toggle(s.Context())
	case *req.Enabled:
		err = s.Commands.Enable(s.Context())
	default:
		s.Commands.Disable()
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": s.Commands.State()})
}

func (h *SessionHandler) OpenCompose(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.OpenCompose(); err != nil {
		h.fail(w, "open compose", err)
		return
	}
	h.writeCompose(w, s)
}

func (h *SessionHandler) CloseCompose(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.CloseCompose()
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) GetCompose(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeCompose(w, s)
}

// PutCompose stores text typed into a field.
func (h *SessionHandler) PutCompose(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Field string `json:"field"`
		Text  string `json:"text"`
	}
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.SetComposeValue(req.Field, req.Text); err != nil {
		writeError(w, err)
		return
	}
	h.writeCompose(w, s)
}

func (h *SessionHandler) StopDictation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.StopDictation(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RedirectField handles an explicit correction ("change the subject").
func (h *SessionHandler) RedirectField(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Field string `json:"field"`
	}
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.RedirectDictation(req.Field); err != nil {
		writeError(w, err)
		return
	}
	h.writeCompose(w, s)
}

func (h *SessionHandler) Speak(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Speak(s.Context(), req.Text); err != nil {
		h.fail(w, "speak", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *SessionHandler) StopSpeaking(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Player.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) writeCompose(w http.ResponseWriter, s *session.Session) {
	c, err := s.Compose()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
