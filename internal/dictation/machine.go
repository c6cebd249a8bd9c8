// Package dictation sequences compose-field capture:
// recipient, subject, body, done.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_mail/internal/capture"
	"github.com/Vovarama1992/voice_mail/internal/ports"
	"github.com/Vovarama1992/voice_mail/internal/speech"
)

var (
	ErrRetriesExhausted = errors.New("dictation retries exhausted")
	ErrAlreadyOpen      = errors.New("dictation already open")
	ErrNotOpen          = errors.New("dictation not open")
	ErrUnknownField     = errors.New("unknown dictation field")
)

const (
	PromptRecipient  = "Who would you like to send this email to?"
	PromptSubject    = "What is the subject of your email?"
	PromptBody       = "Please dictate your message."
	PromptDone       = "Your email is ready. Say send, or ask me to change a field."
	PromptMicrophone = "I can't access the microphone. Please check the permission and try again."
	PromptGiveUp     = "Sorry, I'm having trouble understanding right now. Please try again later."

	// a capture that was just cancelled may still be releasing the device
	busyRetry    = 25 * time.Millisecond
	busyAttempts = 40

	fallbackPrefix = "I didn't catch that. "
	apologyPrefix  = "Sorry, something went wrong. Let's try that again. "
)

// Prompt is the fixed prompt spoken on entering f.
func Prompt(f Field) string {
	switch f {
	case FieldRecipient:
		return PromptRecipient
	case FieldSubject:
		return PromptSubject
	case FieldBody:
		return PromptBody
	case FieldDone:
		return PromptDone
	}
	return ""
}

const (
	ReasonOpened      = "opened"
	ReasonTranscribed = "transcribed"
	ReasonCorrection  = "correction"
	ReasonMicrophone  = "microphone_unavailable"
	ReasonRetries     = "retries_exhausted"
	ReasonClosed      = "closed"
)

type Transition struct {
	From   Field  `json:"from"`
	To     Field  `json:"to"`
	Reason string `json:"reason"`
}

type Config struct {
	// MaxRetries caps consecutive transcription failures per field.
	// Zero retries forever.
	MaxRetries int
}

// Machine is one compose screen's dictation session. The cursor only moves
// forward or through Redirect.
type Machine struct {
	rec     *capture.Recorder
	speaker speech.Speaker
	tr      ports.Transcriber
	cfg     Config
	log     *zap.Logger

	// serializes Open, Redirect and Close
	ctl sync.Mutex

	mu        sync.Mutex
	field     Field
	values    Values
	err       error
	gen       uint64
	parent    context.Context
	cancel    context.CancelFunc
	handle    *capture.Handle
	running   chan struct{}
	observers []func(Transition)

	done     chan struct{}
	doneOnce sync.Once
}

func New(rec *capture.Recorder, speaker speech.Speaker, tr ports.Transcriber, cfg Config, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		rec:     rec,
		speaker: speaker,
		tr:      tr,
		cfg:     cfg,
		log:     log,
		field:   FieldIdle,
		done:    make(chan struct{}),
	}
}

// OnTransition registers an observer. Observers run on the goroutine that
// made the transition and must not call Open, Redirect or Close.
func (m *Machine) OnTransition(fn func(Transition)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Open starts at the recipient field. ctx bounds the whole session.
func (m *Machine) Open(ctx context.Context) error {
	m.ctl.Lock()
	defer m.ctl.Unlock()

	m.mu.Lock()
	if m.field != FieldIdle {
		m.mu.Unlock()
		return ErrAlreadyOpen
	}
	old := m.stopRunLocked()
	m.mu.Unlock()
	if old != nil {
		<-old
	}

	m.mu.Lock()
	m.parent = ctx
	m.err = nil
	t := m.moveLocked(FieldRecipient, ReasonOpened)
	m.startLocked()
	m.mu.Unlock()

	m.emit(t)
	return nil
}

// Redirect jumps to f after an explicit correction. The in-flight capture
// and prompt are abandoned.
func (m *Machine) Redirect(f Field) error {
	if !f.Capturing() {
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}

	m.ctl.Lock()
	defer m.ctl.Unlock()

	m.mu.Lock()
	if m.field == FieldIdle {
		m.mu.Unlock()
		return ErrNotOpen
	}
	old := m.stopRunLocked()
	m.mu.Unlock()

	m.speaker.Stop()
	if old != nil {
		<-old
	}

	m.mu.Lock()
	if m.field == FieldIdle {
		// aborted while we waited
		m.mu.Unlock()
		return ErrNotOpen
	}
	t := m.moveLocked(f, ReasonCorrection)
	m.startLocked()
	m.mu.Unlock()

	m.emit(t)
	return nil
}

// StopRecording ends the current capture early. The clip is processed as
// usual.
func (m *Machine) StopRecording() {
	m.mu.Lock()
	h := m.handle
	m.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

// Close abandons the session and returns to idle. Values stay readable.
func (m *Machine) Close() {
	m.ctl.Lock()
	defer m.ctl.Unlock()

	m.mu.Lock()
	old := m.stopRunLocked()
	var t *Transition
	if m.field != FieldIdle {
		tr := m.moveLocked(FieldIdle, ReasonClosed)
		t = &tr
	}
	m.mu.Unlock()

	m.speaker.Stop()
	if old != nil {
		<-old
	}
	if t != nil {
		m.emit(*t)
	}
}

func (m *Machine) Field() Field {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.field
}

func (m *Machine) Values() Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values
}

// SetValue overwrites a field with typed text.
func (m *Machine) SetValue(f Field, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch f {
	case FieldRecipient:
		m.values.To = text
	case FieldSubject:
		m.values.Subject = text
	case FieldBody:
		m.values.Body = text
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return nil
}

// Err is the reason for the last abort to idle, if any.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done is closed the first time the machine reaches FieldDone.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// ---------------- internals ----------------

func (m *Machine) moveLocked(to Field, reason string) Transition {
	t := Transition{From: m.field, To: to, Reason: reason}
	m.field = to
	return t
}

func (m *Machine) startLocked() {
	m.gen++
	gen := m.gen

	ctx, cancel := context.WithCancel(m.parent)
	m.cancel = cancel

	running := make(chan struct{})
	m.running = running

	go m.run(ctx, gen, running)
}

func (m *Machine) stopRunLocked() chan struct{} {
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.handle != nil {
		m.handle.Cancel()
		m.handle = nil
	}
	r := m.running
	m.running = nil
	return r
}

func (m *Machine) emit(t Transition) {
	m.mu.Lock()
	obs := slices.Clone(m.observers)
	m.mu.Unlock()

	m.log.Info("dictation transition",
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.String("reason", t.Reason),
	)
	for _, fn := range obs {
		fn(t)
	}
}

// current returns the cursor, or false once gen is stale.
func (m *Machine) current(gen uint64) (Field, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.field, m.gen == gen
}

func (m *Machine) setHandle(gen uint64, h *capture.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return false
	}
	m.handle = h
	return true
}

func (m *Machine) abort(gen uint64, reason string, err error) bool {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	m.err = err
	t := m.moveLocked(FieldIdle, reason)
	m.mu.Unlock()

	m.emit(t)
	return true
}

func (m *Machine) say(ctx context.Context, text string) {
	if err := m.speaker.Speak(ctx, text); err != nil && ctx.Err() == nil {
		// a silent prompt still lets the user speak
		m.log.Warn("dictation prompt failed", zap.Error(err))
	}
}

// start opens a capture for the current field, retrying while the
// recorder is still held by a capture that is shutting down.
func (m *Machine) start(ctx context.Context) (*capture.Handle, error) {
	for attempt := 1; ; attempt++ {
		h, err := m.rec.Start(ctx)
		if !errors.Is(err, capture.ErrBusy) || attempt == busyAttempts {
			return h, err
		}
		t := time.NewTimer(busyRetry)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
}

// run drives one field sequence until done, abort, or cancellation.
func (m *Machine) run(ctx context.Context, gen uint64, running chan struct{}) {
	defer close(running)

	prompt := ""
	failures := 0

	for {
		field, ok := m.current(gen)
		if !ok || ctx.Err() != nil {
			return
		}

		if field == FieldDone {
			m.say(ctx, PromptDone)
			m.doneOnce.Do(func() { close(m.done) })
			return
		}

		if prompt == "" {
			prompt = Prompt(field)
		}
		m.say(ctx, prompt)
		if ctx.Err() != nil {
			return
		}

		h, err := m.start(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, capture.ErrMicrophoneUnavailable) {
				err = fmt.Errorf("%w: %w", capture.ErrMicrophoneUnavailable, err)
			}
			if m.abort(gen, ReasonMicrophone, err) {
				m.say(ctx, PromptMicrophone)
			}
			return
		}
		if !m.setHandle(gen, h) {
			h.Cancel()
			<-h.Done()
			return
		}

		clip, err := h.Wait(ctx)
		m.setHandle(gen, nil)
		if err != nil {
			// wait for the device release so the next session can start
			<-h.Done()
			return
		}

		if clip.TooShort {
			prompt = fallbackPrefix + Prompt(field)
			continue
		}

		text, err := m.tr.Transcribe(ctx, ports.TranscriptionRequest{
			Audio:   clip.DataURI(),
			Context: field.Context(),
		})
		if _, ok := m.current(gen); !ok || ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			m.log.Warn("dictation transcription failed",
				zap.String("field", string(field)),
				zap.Int("failures", failures),
				zap.Error(err),
			)
			if m.cfg.MaxRetries > 0 && failures > m.cfg.MaxRetries {
				if m.abort(gen, ReasonRetries, fmt.Errorf("%w: %v", ErrRetriesExhausted, err)) {
					m.say(ctx, PromptGiveUp)
				}
				return
			}
			prompt = apologyPrefix + Prompt(field)
			continue
		}
		if strings.TrimSpace(text) == "" {
			prompt = fallbackPrefix + Prompt(field)
			continue
		}

		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		m.values.apply(field, text)
		t := m.moveLocked(field.next(), ReasonTranscribed)
		m.mu.Unlock()
		m.emit(t)

		failures = 0
		prompt = ""
	}
}
