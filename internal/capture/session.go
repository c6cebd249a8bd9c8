// Package capture owns microphone sessions: one exclusive acquisition at a
// time, buffered until stop, capped at a fixed wall-clock duration.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_mail/internal/metrics"
)

// Recorder enforces that at most one Handle holds the microphone.
type Recorder struct {
	mic Microphone
	cfg Config
	log *zap.Logger
	m   *metrics.Metrics

	mu     sync.Mutex
	busy   bool
	active *Handle
}

func NewRecorder(mic Microphone, cfg Config, log *zap.Logger) *Recorder {
	def := DefaultConfig()
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = def.MaxDuration
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = def.MinBytes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		mic: mic,
		cfg: cfg,
		log: log,
		m:   metrics.Get(),
	}
}

// Start acquires the microphone and begins buffering. The returned handle
// publishes exactly one Clip on Done.
func (r *Recorder) Start(ctx context.Context) (*Handle, error) {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.busy = true
	r.mu.Unlock()

	track, err := r.mic.Acquire(ctx)
	if err != nil {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()

		r.m.Captures.WithLabelValues("unavailable").Inc()
		r.log.Warn("microphone acquire failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
	}

	h := &Handle{
		r:         r,
		track:     track,
		startedAt: time.Now(),
		stopCh:    make(chan struct{}),
		cancelCh:  make(chan struct{}),
		done:      make(chan Clip, 1),
	}
	h.timer = time.AfterFunc(r.cfg.MaxDuration, func() {
		r.log.Debug("capture hit max duration", zap.Duration("max", r.cfg.MaxDuration))
		h.Stop()
	})

	r.mu.Lock()
	r.active = h
	r.mu.Unlock()

	go h.collect()

	r.log.Debug("capture started", zap.String("encoding", track.Encoding()))
	return h, nil
}

// Active reports whether a handle currently holds the microphone.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// StopActive stops the live handle, if any.
func (r *Recorder) StopActive() {
	r.mu.Lock()
	h := r.active
	r.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

func (r *Recorder) release(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == h {
		r.active = nil
		r.busy = false
	}
}

// Handle is one start/stop cycle.
type Handle struct {
	r         *Recorder
	track     Track
	startedAt time.Time
	timer     *time.Timer

	stopOnce   sync.Once
	stopCh     chan struct{}
	cancelOnce sync.Once
	cancelCh   chan struct{}
	done       chan Clip
}

// Stop ends the cycle and keeps whatever the device flushes. Safe to call
// more than once and after self-stop.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
}

// Cancel ends the cycle without waiting for a flush. The clip still
// arrives on Done but callers should discard it.
func (h *Handle) Cancel() {
	h.cancelOnce.Do(func() {
		close(h.cancelCh)
	})
	h.Stop()
}

func (h *Handle) Done() <-chan Clip {
	return h.done
}

// Wait blocks for the clip. On context cancellation the capture is
// cancelled and the clip discarded.
func (h *Handle) Wait(ctx context.Context) (Clip, error) {
	select {
	case clip := <-h.done:
		return clip, nil
	case <-ctx.Done():
		h.Cancel()
		return Clip{}, ctx.Err()
	}
}

// flush asks a Flusher for its final audio and reads until the track
// closes, the timeout passes, or the handle is cancelled. It reports
// whether the track may still hold buffered data.
func (h *Handle) flush(buf *bytes.Buffer) bool {
	f, ok := h.track.(Flusher)
	if !ok || h.r.cfg.FlushTimeout <= 0 {
		return true
	}
	select {
	case <-h.cancelCh:
		return true
	default:
	}

	f.RequestStop()
	timeout := time.NewTimer(h.r.cfg.FlushTimeout)
	defer timeout.Stop()

	data := h.track.Data()
	for {
		select {
		case chunk, ok := <-data:
			if !ok {
				return false
			}
			buf.Write(chunk)
		case <-timeout.C:
			h.r.log.Warn("microphone flush timed out", zap.Duration("timeout", h.r.cfg.FlushTimeout))
			return true
		case <-h.cancelCh:
			return true
		}
	}
}

func (h *Handle) collect() {
	var buf bytes.Buffer
	data := h.track.Data()

loop:
	for {
		select {
		case chunk, ok := <-data:
			if !ok {
				break loop
			}
			buf.Write(chunk)
		case <-h.stopCh:
			if !h.flush(&buf) {
				data = nil
			}
			break loop
		}
	}

	// pick up whatever the device flushed on stop
drain:
	for {
		select {
		case chunk, ok := <-data:
			if !ok {
				break drain
			}
			buf.Write(chunk)
		default:
			break drain
		}
	}

	h.timer.Stop()

	// release the device before anyone sees the clip
	if err := h.track.Release(); err != nil {
		h.r.log.Warn("release microphone track", zap.Error(err))
	}
	h.r.release(h)

	clip := Clip{
		Data:      buf.Bytes(),
		Encoding:  h.track.Encoding(),
		StartedAt: h.startedAt,
		Duration:  time.Since(h.startedAt),
		TooShort:  buf.Len() < h.r.cfg.MinBytes,
	}

	outcome := "clip"
	if clip.TooShort {
		outcome = "too_short"
	}
	h.r.m.Captures.WithLabelValues(outcome).Inc()
	h.r.log.Debug("capture stopped",
		zap.String("size", humanize.Bytes(uint64(buf.Len()))),
		zap.Duration("duration", clip.Duration),
		zap.Bool("too_short", clip.TooShort),
	)

	h.done <- clip
	close(h.done)
}
