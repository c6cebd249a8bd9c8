package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/Vovarama1992/voice_mail/internal/ai"
	"github.com/Vovarama1992/voice_mail/internal/audiocache"
	"github.com/Vovarama1992/voice_mail/internal/config"
	"github.com/Vovarama1992/voice_mail/internal/delivery"
	"github.com/Vovarama1992/voice_mail/internal/domain"
	"github.com/Vovarama1992/voice_mail/internal/error_notificator"
	"github.com/Vovarama1992/voice_mail/internal/events"
	"github.com/Vovarama1992/voice_mail/internal/infra"
	"github.com/Vovarama1992/voice_mail/internal/ports"
	"github.com/Vovarama1992/voice_mail/internal/session"
	"github.com/Vovarama1992/voice_mail/internal/speech"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	alertWindow   = 5 * time.Minute
	sweepInterval = time.Minute
	sessionIdle   = 30 * time.Minute
)

func main() {

	// =========================================================================
	// ENV / LOGGING
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// SPEECH CACHE (postgres when configured, memory otherwise)
	// =========================================================================

	var cacheRepo audiocache.Repo = audiocache.NewMemoryRepo()
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			log.Fatalf("db ping failed: %v", err)
		}
		if err := infra.EnsureSpeechCacheSchema(pingCtx, db); err != nil {
			log.Fatalf("speech cache schema: %v", err)
		}
		cancel()

		cacheRepo = infra.NewSpeechCacheRepo(db)
	} else {
		baseLogger.Warn("DATABASE_URL is not set, speech cache is in memory")
	}
	cache := audiocache.NewService(cacheRepo, baseLogger)

	// =========================================================================
	// ARTIFACT STORE
	// =========================================================================

	store := domain.NewInlineArtifactStore()
	if cfg.S3.Enabled() {
		bucket, err := infra.NewSpeechBucket(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("failed to init s3: %v", err)
		}
		store = domain.NewS3ArtifactStore(bucket)
	}

	// =========================================================================
	// ERROR NOTIFICATION
	// =========================================================================

	var errInfra error_notificator.Notificator = error_notificator.NewLogInfra(baseLogger)
	if cfg.Alerts.Enabled() {
		tg, err := error_notificator.NewTelegramInfra(cfg.Alerts.TelegramToken, cfg.Alerts.ChatID)
		if err != nil {
			log.Fatalf("failed to init telegram alerts: %v", err)
		}
		errInfra = tg
	}
	errService := error_notificator.NewService(errInfra, alertWindow, baseLogger)

	// =========================================================================
	// CLIENTS (STT / LLM / TTS)
	// =========================================================================

	openAIClient := ai.NewOpenAIClient(cfg.OpenAI, cfg.STT.Language)

	var stt ports.SpeechToText = openAIClient
	if cfg.STT.Provider == "deepgram" {
		stt = ai.NewDeepgramClient(cfg.STT.DeepgramKey, cfg.STT.Language)
	}

	var synth ports.Synthesizer = speech.NewOpenAISynthesizer(openAIClient.API(), cfg.OpenAI.TTSModel, cfg.OpenAI.TTSVoice)
	if cfg.TTS.Provider == "elevenlabs" {
		synth = speech.NewElevenLabsClient(cfg.TTS.ElevenLabsKey, cfg.TTS.VoiceID)
	}

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	transcription := ai.NewTranscriptionService(stt, openAIClient, errService, baseLogger)
	classification := ai.NewClassificationService(stt, openAIClient, errService, baseLogger)
	renderer := speech.NewRenderer(cache, synth, store, baseLogger)

	contracts := events.DefaultContracts()
	if cfg.ContractsFile != "" {
		overrides, err := events.LoadContracts(cfg.ContractsFile)
		if err != nil {
			log.Fatalf("page contracts: %v", err)
		}
		contracts = events.WithOverrides(overrides)
	}

	sessions := session.NewManager(session.Deps{
		Renderer:    renderer,
		Transcriber: transcription,
		Classifier:  classification,
		Voice:       cfg.Voice,
		Contracts:   contracts,
		Log:         baseLogger,
	})

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigin,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	delivery.RegisterRoutes(
		r,
		delivery.NewVoiceHandler(transcription, classification, renderer, zl),
		delivery.NewSessionHandler(sessions, zl),
		contracts,
		cfg.RateLimit,
	)

	// =========================================================================
	// BACKGROUND JOBS
	// =========================================================================

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sessions.Run(ctx, sweepInterval, sessionIdle)
	}()

	// =========================================================================
	// START SERVER
	// =========================================================================

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "listening at " + srv.Addr,
		Service: "voice_mail",
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	<-sweepDone
}
