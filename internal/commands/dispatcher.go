// Package commands runs the global voice command loop: listen, classify,
// route, re-arm.
package commands

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
	"github.com/Vovarama1992/voice_mail/internal/events"
	"github.com/Vovarama1992/voice_mail/internal/metrics"
	"github.com/Vovarama1992/voice_mail/internal/ports"
	"github.com/Vovarama1992/voice_mail/internal/speech"
)

const ComposePath = "/compose"

var ErrComposeActive = errors.New("voice commands are disabled on the compose screen")

const (
	PromptComposeActive = "Voice commands are off while you compose. Use dictation to fill in your email."
	PromptTryAgain      = "Sorry, I couldn't process that command. Please try again."
	PromptSearchQuery   = "Please say what to search for."
	NoticeUnavailable   = "That command is not available here."
)

type State string

const (
	StateInactive   State = "inactive"
	StateArmed      State = "idle-armed"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

// Navigator moves the page layer to a path.
type Navigator interface {
	Navigate(path string)
}

// Notifier shows a non-blocking message. Kind is "info" or "error".
type Notifier interface {
	Notify(kind, message string)
}

type Publisher interface {
	Publish(ev events.Event) (int, error)
}

type Config struct {
	Debounce time.Duration // delay before each capture, default 300ms
}

type Dispatcher struct {
	rec     *capture.Recorder
	cls     ports.Classifier
	speaker speech.Speaker
	nav     Navigator
	notify  Notifier
	bus     Publisher
	cfg     Config
	log     *zap.Logger
	m       *metrics.Metrics

	// keeps observer order equal to transition order
	emitMu sync.Mutex

	mu        sync.Mutex
	state     State
	path      string
	gen       uint64
	cancel    context.CancelFunc
	handle    *capture.Handle
	observers []func(State)
}

func NewDispatcher(
	rec *capture.Recorder,
	cls ports.Classifier,
	speaker speech.Speaker,
	nav Navigator,
	notify Notifier,
	bus Publisher,
	cfg Config,
	log *zap.Logger,
) *Dispatcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		rec:     rec,
		cls:     cls,
		speaker: speaker,
		nav:     nav,
		notify:  notify,
		bus:     bus,
		cfg:     cfg,
		log:     log,
		m:       metrics.Get(),
		state:   StateInactive,
		path:    "/",
	}
}

// OnStateChange registers an observer called after every state change.
func (d *Dispatcher) OnStateChange(fn func(State)) {
	d.mu.Lock()
	d.observers = append(d.observers, fn)
	d.mu.Unlock()
}

func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dispatcher) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// Enable arms the loop. ctx bounds the loop's lifetime. On the compose
// screen it refuses with a spoken explanation and never opens the
// microphone.
func (d *Dispatcher) Enable(ctx context.Context) error {
	d.mu.Lock()
	if IsCompose(d.path) {
		d.mu.Unlock()
		go d.say(ctx, PromptComposeActive)
		return ErrComposeActive
	}
	if d.state != StateInactive {
		d.mu.Unlock()
		return nil
	}

	d.gen++
	gen := d.gen
	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.state = StateArmed
	d.releaseAndEmit(StateArmed)
	d.log.Info("voice commands enabled")

	go d.loop(loopCtx, gen)
	return nil
}

// Disable stops the loop. Any live capture is stopped and its device
// released; in-flight results are dropped.
func (d *Dispatcher) Disable() {
	d.mu.Lock()
	if d.state == StateInactive {
		d.mu.Unlock()
		return
	}
	if h := d.stopLocked(); h != nil {
		h.Cancel()
	}
	d.releaseAndEmit(StateInactive)

	d.speaker.Stop()
	d.log.Info("voice commands disabled")
}

func (d *Dispatcher) Toggle(ctx context.Context) error {
	if d.State() == StateInactive {
		return d.Enable(ctx)
	}
	d.Disable()
	return nil
}

// SetPath records the active view. Entering compose forces the loop off.
func (d *Dispatcher) SetPath(path string) {
	d.mu.Lock()
	d.path = path
	compose := IsCompose(path) && d.state != StateInactive
	d.mu.Unlock()

	if compose {
		d.Disable()
	}
}

// ---------------- internals ----------------

func (d *Dispatcher) stopLocked() *capture.Handle {
	d.gen++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	h := d.handle
	d.handle = nil
	d.state = StateInactive
	return h
}

// releaseAndEmit unlocks mu and reports s. Observers must not call back
// into the dispatcher.
func (d *Dispatcher) releaseAndEmit(s State) {
	obs := slices.Clone(d.observers)
	d.emitMu.Lock()
	d.mu.Unlock()
	defer d.emitMu.Unlock()

	for _, fn := range obs {
		fn(s)
	}
}

// advance moves to next only if gen is still current.
func (d *Dispatcher) advance(gen uint64, next State) bool {
	d.mu.Lock()
	if d.gen != gen {
		d.mu.Unlock()
		return false
	}
	d.state = next
	d.releaseAndEmit(next)
	return true
}

func (d *Dispatcher) setHandle(gen uint64, h *capture.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		return false
	}
	d.handle = h
	return true
}

func (d *Dispatcher) current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen == gen
}

func (d *Dispatcher) abort(gen uint64, err error) {
	d.mu.Lock()
	if d.gen != gen {
		d.mu.Unlock()
		return
	}
	d.stopLocked()
	d.releaseAndEmit(StateInactive)

	d.log.Warn("voice commands stopped", zap.Error(err))
	d.notify.Notify("error", "Microphone unavailable. Voice commands are off.")
}

func (d *Dispatcher) loop(ctx context.Context, gen uint64) {
	timer := time.NewTimer(d.cfg.Debounce)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}

		if !d.advance(gen, StateRecording) {
			return
		}

		h, err := d.rec.Start(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, capture.ErrBusy) {
				// previous capture still releasing
				if !d.advance(gen, StateArmed) {
					return
				}
				timer.Reset(d.cfg.Debounce)
				continue
			}
			d.abort(gen, err)
			return
		}
		if !d.setHandle(gen, h) {
			h.Cancel()
			return
		}

		clip, err := h.Wait(ctx)
		d.setHandle(gen, nil)
		if err != nil {
			return
		}

		if !d.advance(gen, StateProcessing) {
			return
		}

		if !clip.TooShort {
			d.process(ctx, gen, clip)
		}

		if !d.advance(gen, StateArmed) {
			return
		}
		timer.Reset(d.cfg.Debounce)
	}
}

func (d *Dispatcher) process(ctx context.Context, gen uint64, clip capture.Clip) {
	cmd, err := d.cls.Classify(ctx, ports.ClassificationRequest{
		Audio: clip.DataURI(),
		Path:  d.Path(),
	})
	if !d.current(gen) || ctx.Err() != nil {
		return
	}
	if err != nil {
		d.log.Warn("classify command", zap.Error(err))
		d.notify.Notify("error", PromptTryAgain)
		d.say(ctx, PromptTryAgain)
		return
	}

	d.route(ctx, gen, cmd)
}

func (d *Dispatcher) route(ctx context.Context, gen uint64, cmd ports.Command) {
	res := Resolve(cmd)
	d.m.CommandsRouted.WithLabelValues(string(res.Kind)).Inc()
	d.log.Info("voice command",
		zap.String("command", cmd.Command),
		zap.String("kind", string(res.Kind)),
	)

	switch res.Kind {
	case KindNavigate:
		d.navigate(ctx, gen, res.Ack, res.Target)

	case KindAction:
		if res.Name == ports.CmdSearchEmails {
			q := strings.TrimSpace(cmd.Query)
			if q == "" {
				d.notify.Notify("info", PromptSearchQuery)
				d.say(ctx, PromptSearchQuery)
				return
			}
			d.navigate(ctx, gen, "Searching for "+q, SearchPath(q))
			return
		}
		if _, err := d.bus.Publish(events.Event{Action: res.Name, Payload: res.Params}); err != nil {
			d.log.Warn("publish page event", zap.String("action", res.Name), zap.Error(err))
			msg := NoticeUnavailable
			if t := strings.TrimSpace(cmd.Transcript); t != "" {
				msg = fmt.Sprintf("%q is not available here.", t)
			}
			d.notify.Notify("info", msg)
		}

	default:
		msg := "Command not recognized."
		if res.Transcript != "" {
			msg = fmt.Sprintf("Command not recognized: %q", res.Transcript)
		}
		d.notify.Notify("info", msg)
	}
}

// say speaks text and logs a failure unless ctx ended first.
func (d *Dispatcher) say(ctx context.Context, text string) {
	if err := d.speaker.Speak(ctx, text); err != nil && ctx.Err() == nil {
		d.log.Warn("speak prompt", zap.String("text", text), zap.Error(err))
	}
}

// navigate speaks the acknowledgement, then navigates.
func (d *Dispatcher) navigate(ctx context.Context, gen uint64, ack, target string) {
	d.say(ctx, ack)
	if !d.current(gen) {
		return
	}
	d.nav.Navigate(target)
	d.SetPath(target)
}
