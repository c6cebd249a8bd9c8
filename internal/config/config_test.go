package config

import (
	"os"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Voice.CaptureMaxDuration != 7*time.Second {
		t.Errorf("CaptureMaxDuration = %v", cfg.Voice.CaptureMaxDuration)
	}
	if cfg.Voice.CaptureMinBytes != 100 {
		t.Errorf("CaptureMinBytes = %d", cfg.Voice.CaptureMinBytes)
	}
	if cfg.Voice.ListenDebounce != 300*time.Millisecond {
		t.Errorf("ListenDebounce = %v", cfg.Voice.ListenDebounce)
	}
	if cfg.Voice.DictationMaxRetries != 0 {
		t.Errorf("DictationMaxRetries = %d", cfg.Voice.DictationMaxRetries)
	}
	if cfg.S3.Enabled() || cfg.Alerts.Enabled() {
		t.Error("S3 and alerts should be disabled by default")
	}
}

func TestLoadFromDotEnv(t *testing.T) {
	chdirTemp(t)
	env := "OPENAI_API_KEY=sk-file\nLISTEN_DEBOUNCE=500ms\nCORS_ORIGINS=https://a.example, https://b.example\n"
	if err := os.WriteFile(".env", []byte(env), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv never overrides variables that are already set
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("LISTEN_DEBOUNCE", "")
	os.Unsetenv("LISTEN_DEBOUNCE")
	t.Setenv("CORS_ORIGINS", "")
	os.Unsetenv("CORS_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-file" {
		t.Errorf("APIKey = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Voice.ListenDebounce != 500*time.Millisecond {
		t.Errorf("ListenDebounce = %v", cfg.Voice.ListenDebounce)
	}
	if len(cfg.CORSOrigin) != 2 || cfg.CORSOrigin[1] != "https://b.example" {
		t.Errorf("CORSOrigin = %v", cfg.CORSOrigin)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing_openai_key", map[string]string{"OPENAI_API_KEY": ""}},
		{"bad_duration", map[string]string{"CAPTURE_MAX_DURATION": "seven"}},
		{"bad_int", map[string]string{"CAPTURE_MIN_BYTES": "lots"}},
		{"deepgram_without_key", map[string]string{"STT_PROVIDER": "deepgram"}},
		{"elevenlabs_without_key", map[string]string{"TTS_PROVIDER": "elevenlabs"}},
		{"unknown_tts", map[string]string{"TTS_PROVIDER": "espeak"}},
		{"s3_without_bucket", map[string]string{"S3_ENDPOINT": "minio:9000"}},
		{"negative_retries", map[string]string{"DICTATION_MAX_RETRIES": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
