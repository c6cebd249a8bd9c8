// Package config loads service configuration from the environment
// (optionally seeded from a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string // empty → in-memory speech cache

	OpenAI     OpenAIConfig
	STT        STTConfig
	TTS        TTSConfig
	S3         S3Config
	Voice      VoiceConfig
	Alerts     AlertConfig
	RateLimit  int // requests per minute per IP on the service endpoints
	CORSOrigin []string

	ContractsFile string // optional YAML page-event contract overrides
}

type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	ChatModel string
	TTSModel  string
	TTSVoice  string
}

type STTConfig struct {
	Provider    string // openai | deepgram
	DeepgramKey string
	Language    string
}

type TTSConfig struct {
	Provider      string // openai | elevenlabs
	ElevenLabsKey string
	VoiceID       string
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
}

func (c S3Config) Enabled() bool {
	return c.Endpoint != ""
}

type VoiceConfig struct {
	CaptureMaxDuration  time.Duration
	CaptureMinBytes     int
	ListenDebounce      time.Duration
	DictationMaxRetries int // 0 = retry forever
	MicAckTimeout       time.Duration
}

type AlertConfig struct {
	TelegramToken string
	ChatID        int64
}

func (c AlertConfig) Enabled() bool {
	return c.TelegramToken != "" && c.ChatID != 0
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		OpenAI: OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			BaseURL:   os.Getenv("OPENAI_BASE_URL"),
			ChatModel: getenv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			TTSModel:  getenv("OPENAI_TTS_MODEL", "tts-1"),
			TTSVoice:  getenv("OPENAI_TTS_VOICE", "alloy"),
		},
		STT: STTConfig{
			Provider:    getenv("STT_PROVIDER", "openai"),
			DeepgramKey: os.Getenv("DEEPGRAM_API_KEY"),
			Language:    getenv("STT_LANGUAGE", "en"),
		},
		TTS: TTSConfig{
			Provider:      getenv("TTS_PROVIDER", "openai"),
			ElevenLabsKey: os.Getenv("ELEVENLABS_API_KEY"),
			VoiceID:       getenv("ELEVENLABS_VOICE_ID", "EXAVITQu4vr4xnSDxMaL"),
		},
		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    os.Getenv("S3_REGION"),
			Secure:    getbool("S3_SECURE", true, &errs),
		},
		Voice: VoiceConfig{
			CaptureMaxDuration:  getduration("CAPTURE_MAX_DURATION", 7*time.Second, &errs),
			CaptureMinBytes:     getint("CAPTURE_MIN_BYTES", 100, &errs),
			ListenDebounce:      getduration("LISTEN_DEBOUNCE", 300*time.Millisecond, &errs),
			DictationMaxRetries: getint("DICTATION_MAX_RETRIES", 0, &errs),
			MicAckTimeout:       getduration("MIC_ACK_TIMEOUT", 15*time.Second, &errs),
		},
		Alerts: AlertConfig{
			TelegramToken: os.Getenv("ALERT_TELEGRAM_TOKEN"),
			ChatID:        int64(getint("ALERT_CHAT_ID", 0, &errs)),
		},
		RateLimit:  getint("RATE_LIMIT_PER_MINUTE", 120, &errs),
		CORSOrigin: getlist("CORS_ORIGINS", []string{"*"}),

		ContractsFile: os.Getenv("PAGE_CONTRACTS_FILE"),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}

	switch c.STT.Provider {
	case "openai":
	case "deepgram":
		if c.STT.DeepgramKey == "" {
			return errors.New("DEEPGRAM_API_KEY is required for STT_PROVIDER=deepgram")
		}
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q", c.STT.Provider)
	}

	switch c.TTS.Provider {
	case "openai":
	case "elevenlabs":
		if c.TTS.ElevenLabsKey == "" {
			return errors.New("ELEVENLABS_API_KEY is required for TTS_PROVIDER=elevenlabs")
		}
	default:
		return fmt.Errorf("unknown TTS_PROVIDER %q", c.TTS.Provider)
	}

	if c.S3.Enabled() && c.S3.Bucket == "" {
		return errors.New("S3_BUCKET is required when S3_ENDPOINT is set")
	}

	if c.Voice.CaptureMaxDuration <= 0 {
		return errors.New("CAPTURE_MAX_DURATION must be positive")
	}
	if c.Voice.CaptureMinBytes < 0 {
		return errors.New("CAPTURE_MIN_BYTES must not be negative")
	}
	if c.Voice.DictationMaxRetries < 0 {
		return errors.New("DICTATION_MAX_RETRIES must not be negative")
	}
	if c.RateLimit <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func getbool(key string, def bool, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func getduration(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func getlist(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
