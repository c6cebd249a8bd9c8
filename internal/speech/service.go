// Package speech renders text to audio through the speech cache and plays
// it on a single interruptible output stream.
package speech

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_mail/internal/audiocache"
)

// Controller plays one stream at a time. A new Play interrupts the current
// stream; onDone fires exactly once per accepted Play.
type Controller struct {
	renderer *Renderer
	out      Output
	log      *zap.Logger

	mu        sync.Mutex
	rendering bool
	gen       uint64
	current   *playback
}

type playback struct {
	stream Stream
	once   sync.Once
	onDone func()
}

func (p *playback) finish() {
	p.once.Do(p.onDone)
}

func NewController(renderer *Renderer, out Output, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		renderer: renderer,
		out:      out,
		log:      log,
	}
}

// Play speaks text. Empty text, or a render already in flight, is a no-op
// that calls onDone right away. Errors are returned after onDone ran.
func (c *Controller) Play(ctx context.Context, text string, onDone func()) error {
	if onDone == nil {
		onDone = func() {}
	}

	text = audiocache.Key(text)
	if text == "" {
		onDone()
		return nil
	}

	c.mu.Lock()
	if c.rendering {
		c.mu.Unlock()
		c.log.Debug("speech render in flight, skipping", zap.Int("chars", len(text)))
		onDone()
		return nil
	}
	c.rendering = true
	prev := c.current
	c.current = nil
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	if prev != nil {
		prev.stream.Stop()
		prev.finish()
	}

	rendered, err := c.renderer.Render(ctx, text)

	c.mu.Lock()
	c.rendering = false
	stale := c.gen != gen
	c.mu.Unlock()

	if err != nil {
		onDone()
		return err
	}
	if stale {
		// stopped while rendering
		onDone()
		return nil
	}

	stream, err := c.out.Play(ctx, rendered.Ref)
	if err != nil {
		onDone()
		return fmt.Errorf("start playback: %w", err)
	}

	p := &playback{stream: stream, onDone: onDone}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		stream.Stop()
		p.finish()
		return nil
	}
	c.current = p
	c.mu.Unlock()

	go c.watch(p)
	return nil
}

func (c *Controller) watch(p *playback) {
	if err := <-p.stream.Done(); err != nil {
		c.log.Warn("playback ended with error", zap.Error(err))
	}

	c.mu.Lock()
	if c.current == p {
		c.current = nil
	}
	c.mu.Unlock()

	p.finish()
}

// Stop halts playback immediately. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	p := c.current
	c.current = nil
	c.gen++
	c.mu.Unlock()

	if p != nil {
		p.stream.Stop()
		p.finish()
	}
}

// Playing reports whether a stream is currently active.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Speak plays text and blocks until playback completes. Cancelling ctx
// stops playback.
func (c *Controller) Speak(ctx context.Context, text string) error {
	done := make(chan struct{})
	if err := c.Play(ctx, text, func() { close(done) }); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.Stop()
		return ctx.Err()
	}
}
