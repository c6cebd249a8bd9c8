package delivery

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Vovarama1992/voice_mail/internal/commands"
	"github.com/Vovarama1992/voice_mail/internal/dictation"
	"github.com/Vovarama1992/voice_mail/internal/ports"
	"github.com/Vovarama1992/voice_mail/internal/session"
)

// clips arrive inline as data URIs
const maxBody = 20 << 20

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ports.ErrEmptyRequest),
		errors.Is(err, ports.ErrInvalidContext),
		errors.Is(err, dictation.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrUnknownRecording),
		errors.Is(err, session.ErrUnknownPlayback):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoCompose),
		errors.Is(err, dictation.ErrAlreadyOpen),
		errors.Is(err, dictation.ErrNotOpen),
		errors.Is(err, commands.ErrComposeActive):
		return http.StatusConflict
	case errors.Is(err, ports.ErrTranscriptionFailed),
		errors.Is(err, ports.ErrClassificationFailed),
		errors.Is(err, ports.ErrSynthesisFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
