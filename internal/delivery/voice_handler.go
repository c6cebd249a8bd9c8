package delivery

import (
	"context"
	"net/http"
	"strings"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/Vovarama1992/voice_mail/internal/ports"
	"github.com/Vovarama1992/voice_mail/internal/speech"
)

// TextClassifier also accepts an utterance that was already transcribed.
type TextClassifier interface {
	ports.Classifier
	ClassifyText(ctx context.Context, transcript, path string) (ports.Command, error)
}

type VoiceHandler struct {
	tr       ports.Transcriber
	cls      TextClassifier
	renderer *speech.Renderer
	log      *logger.ZapLogger
}

func NewVoiceHandler(tr ports.Transcriber, cls TextClassifier, renderer *speech.Renderer, log *logger.ZapLogger) *VoiceHandler {
	return &VoiceHandler{tr: tr, cls: cls, renderer: renderer, log: log}
}

func (h *VoiceHandler) fail(w http.ResponseWriter, msg string, err error) {
	level := "warn"
	if statusOf(err) >= http.StatusInternalServerError {
		level = "error"
	}
	h.log.Log(logger.LogEntry{Level: level, Message: msg, Error: err})
	writeError(w, err)
}

func (h *VoiceHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req ports.TranscriptionRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	text, err := h.tr.Transcribe(r.Context(), req)
	if err != nil {
		h.fail(w, "transcribe failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcript": text})
}

func (h *VoiceHandler) VoiceCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ports.ClassificationRequest
		Transcript string `json:"transcript"`
	}
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	var (
		cmd ports.Command
		err error
	)
	if req.Audio == "" && strings.TrimSpace(req.Transcript) != "" {
		cmd, err = h.cls.ClassifyText(r.Context(), strings.TrimSpace(req.Transcript), req.Path)
	} else {
		cmd, err = h.cls.Classify(r.Context(), req.ClassificationRequest)
	}
	if err != nil {
		h.fail(w, "voice command failed", err)
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

func (h *VoiceHandler) TTS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	out, err := h.renderer.Render(r.Context(), req.Text)
	if err != nil {
		h.fail(w, "tts failed", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
