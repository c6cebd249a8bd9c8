package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Vovarama1992/voice_mail/internal/config"
	"github.com/Vovarama1992/voice_mail/internal/datauri"
	"github.com/Vovarama1992/voice_mail/internal/ports"
)

type fakeSTT struct {
	text string
	err  error

	gotMime string
	gotData []byte
}

func (f *fakeSTT) SpeechToText(_ context.Context, audio []byte, mime string) (string, error) {
	f.gotMime = mime
	f.gotData = audio
	return f.text, f.err
}

type fakeLLM struct {
	reply string
	err   error

	mu       sync.Mutex
	calls    int
	system   string
	user     string
	jsonMode bool
}

func (f *fakeLLM) Complete(_ context.Context, system, user string, jsonMode bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.system, f.user, f.jsonMode = system, user, jsonMode
	return f.reply, f.err
}

var clip = datauri.Encode("audio/webm;codecs=opus", []byte("opus-frames"))

func TestTranscribe(t *testing.T) {
	tests := []struct {
		name      string
		req       ports.TranscriptionRequest
		stt       *fakeSTT
		llm       *fakeLLM
		want      string
		wantErr   error
		wantCalls int
	}{
		{
			name:      "audio_to_address",
			req:       ports.TranscriptionRequest{Audio: clip, Context: ports.ContextTo},
			stt:       &fakeSTT{text: "john at example dot com"},
			llm:       &fakeLLM{reply: "john@example.com"},
			want:      "john@example.com",
			wantCalls: 1,
		},
		{
			name:      "raw_transcript_skips_stt",
			req:       ports.TranscriptionRequest{Transcript: "lunch on friday", Context: ports.ContextSubject},
			stt:       &fakeSTT{err: errors.New("must not be called")},
			llm:       &fakeLLM{reply: `"Lunch on Friday"`},
			want:      "Lunch on Friday",
			wantCalls: 1,
		},
		{
			name:    "nothing_supplied",
			req:     ports.TranscriptionRequest{Context: ports.ContextBody},
			stt:     &fakeSTT{},
			llm:     &fakeLLM{},
			wantErr: ports.ErrEmptyRequest,
		},
		{
			name:    "bad_context",
			req:     ports.TranscriptionRequest{Transcript: "hi", Context: "cc"},
			stt:     &fakeSTT{},
			llm:     &fakeLLM{},
			wantErr: ports.ErrInvalidContext,
		},
		{
			name:    "malformed_audio",
			req:     ports.TranscriptionRequest{Audio: "not-a-data-uri", Context: ports.ContextBody},
			stt:     &fakeSTT{},
			llm:     &fakeLLM{},
			wantErr: ports.ErrTranscriptionFailed,
		},
		{
			name:    "stt_failure",
			req:     ports.TranscriptionRequest{Audio: clip, Context: ports.ContextBody},
			stt:     &fakeSTT{err: errors.New("502")},
			llm:     &fakeLLM{},
			wantErr: ports.ErrTranscriptionFailed,
		},
		{
			name:      "cleanup_failure",
			req:       ports.TranscriptionRequest{Audio: clip, Context: ports.ContextBody},
			stt:       &fakeSTT{text: "hello"},
			llm:       &fakeLLM{err: errors.New("429")},
			wantErr:   ports.ErrTranscriptionFailed,
			wantCalls: 1,
		},
		{
			name: "silence_is_empty",
			req:  ports.TranscriptionRequest{Audio: clip, Context: ports.ContextBody},
			stt:  &fakeSTT{text: ""},
			llm:  &fakeLLM{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTranscriptionService(tt.stt, tt.llm, nil, nil)

			got, err := svc.Transcribe(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transcribe: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if tt.llm.calls != tt.wantCalls {
				t.Errorf("llm calls = %d, want %d", tt.llm.calls, tt.wantCalls)
			}
		})
	}
}

func TestTranscribeUsesContextPrompt(t *testing.T) {
	stt := &fakeSTT{text: "hi there"}
	llm := &fakeLLM{reply: "Hi there."}
	svc := NewTranscriptionService(stt, llm, nil, nil)

	if _, err := svc.Transcribe(context.Background(), ports.TranscriptionRequest{Audio: clip, Context: ports.ContextBody}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if llm.system != cleanupPrompts[ports.ContextBody] {
		t.Error("body prompt not used")
	}
	if stt.gotMime != "audio/webm;codecs=opus" || string(stt.gotData) != "opus-frames" {
		t.Errorf("stt got %q %q", stt.gotMime, stt.gotData)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    ports.Command
		wantErr error
	}{
		{
			name:  "navigate",
			reply: `{"command":"navigate_inbox"}`,
			want:  ports.Command{Command: ports.CmdNavigateInbox},
		},
		{
			name:  "index_passthrough",
			reply: `{"command":"action_read_email","emailId":2}`,
			want:  ports.Command{Command: ports.CmdReadEmail, EmailID: intPtr(2)},
		},
		{
			name:  "outside_grammar",
			reply: `{"command":"make_coffee"}`,
			want:  ports.Command{Command: ports.CmdUnknown},
		},
		{
			name:    "not_json",
			reply:   "I think you want the inbox",
			wantErr: ports.ErrClassificationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{reply: tt.reply}
			svc := NewClassificationService(&fakeSTT{text: "go to inbox"}, llm, nil, nil)

			got, err := svc.Classify(context.Background(), ports.ClassificationRequest{Audio: clip, Path: "/archive"})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}

			if got.Command != tt.want.Command {
				t.Errorf("Command = %q, want %q", got.Command, tt.want.Command)
			}
			if (got.EmailID == nil) != (tt.want.EmailID == nil) ||
				(got.EmailID != nil && *got.EmailID != *tt.want.EmailID) {
				t.Errorf("EmailID = %v, want %v", got.EmailID, tt.want.EmailID)
			}
			if got.Transcript != "go to inbox" {
				t.Errorf("Transcript = %q", got.Transcript)
			}
			if !llm.jsonMode || !strings.Contains(llm.user, "/archive") {
				t.Errorf("jsonMode=%v user=%q", llm.jsonMode, llm.user)
			}
		})
	}
}

func TestClassifyErrors(t *testing.T) {
	svc := NewClassificationService(&fakeSTT{err: errors.New("down")}, &fakeLLM{}, nil, nil)

	if _, err := svc.Classify(context.Background(), ports.ClassificationRequest{}); !errors.Is(err, ports.ErrEmptyRequest) {
		t.Errorf("empty: %v", err)
	}
	if _, err := svc.Classify(context.Background(), ports.ClassificationRequest{Audio: clip}); !errors.Is(err, ports.ErrClassificationFailed) {
		t.Errorf("stt failure: %v", err)
	}
}

func TestClassifySilenceIsUnknown(t *testing.T) {
	llm := &fakeLLM{}
	svc := NewClassificationService(&fakeSTT{text: ""}, llm, nil, nil)

	got, err := svc.Classify(context.Background(), ports.ClassificationRequest{Audio: clip, Path: "/inbox"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Command != ports.CmdUnknown || llm.calls != 0 {
		t.Errorf("got %q with %d llm calls", got.Command, llm.calls)
	}
}

func TestPromptListsEveryCommand(t *testing.T) {
	for _, c := range ports.Commands {
		if commandHints[c] == "" {
			t.Errorf("no hint for %s", c)
		}
		if !strings.Contains(classifySystem, "- "+c+":") {
			t.Errorf("prompt misses %s", c)
		}
	}
}

func TestPromptAsksOnlyForRoutedKeys(t *testing.T) {
	if strings.Contains(classifySystem, `"field"`) {
		t.Error("prompt requests a field key nothing routes")
	}
	for _, key := range []string{`"command"`, `"emailId"`, `"query"`, `"category"`} {
		if !strings.Contains(classifySystem, key) {
			t.Errorf("prompt misses %s", key)
		}
	}
}

func TestDeepgramClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token dg" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/webm" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := r.URL.Query().Get("language"); got != "en" {
			t.Errorf("language = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "frames" {
			t.Errorf("body = %q", body)
		}
		w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":" go to inbox "}]}]}}`))
	}))
	defer srv.Close()

	c := NewDeepgramClient("dg", "en")
	c.baseURL = srv.URL

	got, err := c.SpeechToText(context.Background(), []byte("frames"), "audio/webm;codecs=opus")
	if err != nil {
		t.Fatalf("SpeechToText: %v", err)
	}
	if got != "go to inbox" {
		t.Errorf("got %q", got)
	}
}

func TestDeepgramClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewDeepgramClient("dg", "")
	c.baseURL = srv.URL

	if _, err := c.SpeechToText(context.Background(), []byte("x"), "audio/ogg"); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenAIClientCompleteJSONMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Model          string `json:"model"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "gpt-4o-mini" || req.ResponseFormat.Type != "json_object" {
			t.Errorf("model=%q format=%q", req.Model, req.ResponseFormat.Type)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":" {\"command\":\"unknown\"} "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(config.OpenAIConfig{APIKey: "sk", BaseURL: srv.URL + "/v1", ChatModel: "gpt-4o-mini"}, "en")

	got, err := c.Complete(context.Background(), "sys", "user", true)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"command":"unknown"}` {
		t.Errorf("got %q", got)
	}
}

func TestDiagnose(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&openai.APIError{HTTPStatusCode: 401}, "Invalid API key."},
		{&openai.APIError{HTTPStatusCode: 429}, "Rate limit or quota exceeded."},
		{&openai.RequestError{HTTPStatusCode: 503}, "Provider internal error."},
		{context.Canceled, "Request cancelled by caller."},
	}
	for _, tt := range tests {
		if got := diagnose(tt.err); got != tt.want {
			t.Errorf("diagnose(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func intPtr(v int) *int { return &v }
