// Package session hosts the voice core for one browser tab. The page owns
// the microphone and the speaker; the session drives them over an event
// stream and takes their answers back as HTTP calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_mail/internal/capture"
	"github.com/Vovarama1992/voice_mail/internal/commands"
	"github.com/Vovarama1992/voice_mail/internal/config"
	"github.com/Vovarama1992/voice_mail/internal/dictation"
	"github.com/Vovarama1992/voice_mail/internal/events"
	"github.com/Vovarama1992/voice_mail/internal/ports"
	"github.com/Vovarama1992/voice_mail/internal/speech"
)

const (
	outboxSize = 64
	// time the page gets to upload a clip after stop_recording
	uploadGrace = 5 * time.Second
)

var ErrNoCompose = errors.New("compose screen is not open")

type Deps struct {
	Renderer    *speech.Renderer
	Transcriber ports.Transcriber
	Classifier  ports.Classifier
	Voice       config.VoiceConfig
	Contracts   []events.Contract // nil uses events.DefaultContracts
	Log         *zap.Logger
}

// Compose is the dictation view reported to the page.
type Compose struct {
	Field  dictation.Field  `json:"field"`
	Values dictation.Values `json:"values"`
	Error  string           `json:"error,omitempty"`
}

type Session struct {
	ID        string
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	out    *outbox
	deps   Deps
	log    *zap.Logger

	Mic      *RemoteMic
	Output   *RemoteOutput
	Player   *speech.Controller
	Bus      *events.Bus
	Commands *commands.Dispatcher
	rec      *capture.Recorder

	mu       sync.Mutex
	compose  *dictation.Machine
	lastSeen time.Time
}

type navigator struct{ out emitter }

func (n navigator) Navigate(path string) {
	n.out.send("navigate", map[string]any{"path": path})
}

type notifier struct{ out emitter }

func (n notifier) Notify(kind, message string) {
	n.out.send("notify", map[string]any{"kind": kind, "message": message})
}

func New(deps Deps) *Session {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	id := uuid.NewString()
	log := deps.Log.With(zap.String("session", id))
	ctx, cancel := context.WithCancel(context.Background())
	out := newOutbox(outboxSize, log)

	mic := NewRemoteMic(out, deps.Voice.CaptureMaxDuration, deps.Voice.MicAckTimeout)
	rec := capture.NewRecorder(mic, capture.Config{
		MaxDuration:  deps.Voice.CaptureMaxDuration,
		MinBytes:     deps.Voice.CaptureMinBytes,
		FlushTimeout: uploadGrace,
	}, log)
	output := NewRemoteOutput(out)
	player := speech.NewController(deps.Renderer, output, log)

	contracts := deps.Contracts
	if contracts == nil {
		contracts = events.DefaultContracts()
	}
	bus := events.NewBus(log, contracts...)
	bus.SubscribeAll(func(ev events.Event) {
		out.send("command", ev)
	})

	disp := commands.NewDispatcher(rec, deps.Classifier, player,
		navigator{out}, notifier{out}, bus,
		commands.Config{Debounce: deps.Voice.ListenDebounce}, log)
	disp.OnStateChange(func(s commands.State) {
		out.send("listening", map[string]any{"state": s})
	})

	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		ctx:       ctx,
		cancel:    cancel,
		out:       out,
		deps:      deps,
		log:       log,
		Mic:       mic,
		Output:    output,
		Player:    player,
		Bus:       bus,
		Commands:  disp,
		rec:       rec,
		lastSeen:  now,
	}
}

// Events is the stream of messages for the page.
func (s *Session) Events() <-chan Message { return s.out.ch }

// Closed is closed when the session ends.
func (s *Session) Closed() <-chan struct{} { return s.ctx.Done() }

func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SetPath records the page's current view. Leaving a view stops its
// speech; leaving compose ends its dictation.
func (s *Session) SetPath(path string) {
	prev := s.Commands.Path()
	s.Commands.SetPath(path)
	if prev == path {
		return
	}
	s.Player.Stop()
	if !commands.IsCompose(path) {
		s.CloseCompose()
	}
}

// OpenCompose enters the compose screen and starts a fresh dictation.
func (s *Session) OpenCompose() error {
	s.SetPath(commands.ComposePath)

	s.mu.Lock()
	old := s.compose
	m := dictation.New(s.rec, s.Player, s.deps.Transcriber,
		dictation.Config{MaxRetries: s.deps.Voice.DictationMaxRetries}, s.log)
	s.compose = m
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	m.OnTransition(func(t dictation.Transition) {
		s.out.send("dictation", map[string]any{
			"transition": t,
			"values":     m.Values(),
		})
	})
	return m.Open(s.ctx)
}

func (s *Session) CloseCompose() {
	s.mu.Lock()
	m := s.compose
	s.compose = nil
	s.mu.Unlock()

	if m != nil {
		m.Close()
	}
}

func (s *Session) machine() (*dictation.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.compose == nil {
		return nil, ErrNoCompose
	}
	return s.compose, nil
}

func (s *Session) StopDictation() error {
	m, err := s.machine()
	if err != nil {
		return err
	}
	m.StopRecording()
	return nil
}

// RedirectDictation jumps to a spoken or typed field name.
func (s *Session) RedirectDictation(field string) error {
	f, ok := dictation.ParseField(field)
	if !ok {
		return fmt.Errorf("%w: %q", dictation.ErrUnknownField, field)
	}
	m, err := s.machine()
	if err != nil {
		return err
	}
	return m.Redirect(f)
}

func (s *Session) SetComposeValue(field, text string) error {
	f, ok := dictation.ParseField(field)
	if !ok {
		return fmt.Errorf("%w: %q", dictation.ErrUnknownField, field)
	}
	m, err := s.machine()
	if err != nil {
		return err
	}
	return m.SetValue(f, text)
}

func (s *Session) Compose() (Compose, error) {
	m, err := s.machine()
	if err != nil {
		return Compose{}, err
	}
	c := Compose{Field: m.Field(), Values: m.Values()}
	if err := m.Err(); err != nil {
		c.Error = err.Error()
	}
	return c, nil
}

// Speak reads text aloud on the page, replacing any current speech. It
// returns once rendering is done; the end of playback is reported as a
// speech_ended event.
func (s *Session) Speak(ctx context.Context, text string) error {
	return s.Player.Play(ctx, text, func() {
		s.out.send("speech_ended", map[string]any{})
	})
}

// Close stops every loop and releases the page's devices.
func (s *Session) Close() {
	s.Commands.Disable()
	s.CloseCompose()
	s.Player.Stop()
	s.cancel()
}
