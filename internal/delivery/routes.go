package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vovarama1992/voice_mail/internal/events"
)

func RegisterRoutes(
	r chi.Router,
	hVoice *VoiceHandler,
	hSess *SessionHandler,
	contracts []events.Contract,
	ratePerMinute int,
) {
	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// --- stateless services ---
	r.Route("/api", func(ar chi.Router) {
		ar.Use(
			httputil.RecoverMiddleware,
			httprate.LimitByIP(ratePerMinute, time.Minute),
		)

		ar.Post("/transcribe", hVoice.Transcribe)
		ar.Post("/voice-command", hVoice.VoiceCommand)
		ar.Post("/tts", hVoice.TTS)
		ar.Get("/contracts", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, contracts)
		})
	})

	// --- page sessions ---
	r.Route("/sessions", func(sr chi.Router) {
		sr.Use(httputil.RecoverMiddleware)

		sr.With(httprate.LimitByIP(ratePerMinute, time.Minute)).Post("/", hSess.Create)

		sr.Route("/{id}", func(s chi.Router) {
			s.Delete("/", hSess.Delete)
			s.Get("/events", hSess.Events)

			// device answers from the page
			s.Post("/microphone", hSess.Microphone)
			s.Post("/audio", hSess.Audio)
			s.Post("/playback/{playback_id}/ended", hSess.PlaybackEnded)

			s.Post("/navigation", hSess.Navigation)
			s.Post("/listening", hSess.Listening)
			s.Post("/speak", hSess.Speak)
			s.Delete("/speak", hSess.StopSpeaking)

			// --- compose ---
			s.Post("/compose", hSess.OpenCompose)
			s.Get("/compose", hSess.GetCompose)
			s.Put("/compose", hSess.PutCompose)
			s.Delete("/compose", hSess.CloseCompose)
			s.Post("/compose/stop", hSess.StopDictation)
			s.Post("/compose/field", hSess.RedirectField)
		})
	})
}
