package speech

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_mail/internal/audiocache"
	"github.com/Vovarama1992/voice_mail/internal/datauri"
	"github.com/Vovarama1992/voice_mail/internal/metrics"
	"github.com/Vovarama1992/voice_mail/internal/ports"
)

// Rendered is a playable reference for some text.
type Rendered struct {
	Ref    string `json:"audio"`
	Cached bool   `json:"cached"`
}

// Renderer resolves text to audio: cache first, synthesis on a miss.
type Renderer struct {
	cache *audiocache.Service
	synth ports.Synthesizer
	store ports.ArtifactStore
	log   *zap.Logger
	m     *metrics.Metrics
}

func NewRenderer(cache *audiocache.Service, synth ports.Synthesizer, store ports.ArtifactStore, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{
		cache: cache,
		synth: synth,
		store: store,
		log:   log,
		m:     metrics.Get(),
	}
}

func (r *Renderer) Render(ctx context.Context, text string) (Rendered, error) {
	key := audiocache.Key(text)
	if key == "" {
		return Rendered{}, fmt.Errorf("%w: empty text", ports.ErrSynthesisFailed)
	}

	if r.cache != nil {
		if e, ok := r.cache.Lookup(ctx, key); ok {
			return Rendered{Ref: e.AudioRef, Cached: true}, nil
		}
	}

	audio, err := r.synth.Synthesize(ctx, key)
	if err != nil {
		r.m.Synthesis.WithLabelValues("error").Inc()
		return Rendered{}, fmt.Errorf("%w: %v", ports.ErrSynthesisFailed, err)
	}
	if len(audio.Data) == 0 {
		r.m.Synthesis.WithLabelValues("empty").Inc()
		return Rendered{}, fmt.Errorf("%w: empty audio payload", ports.ErrSynthesisFailed)
	}
	r.m.Synthesis.WithLabelValues("ok").Inc()

	ref := ""
	if r.store != nil {
		ref, err = r.store.Save(ctx, key, audio)
		if err != nil {
			r.log.Warn("save speech artifact failed, inlining", zap.Error(err))
			ref = ""
		}
	}
	if ref == "" {
		ref = datauri.Encode(audio.ContentType, audio.Data)
	}

	if r.cache != nil {
		r.cache.Store(ctx, key, ref)
	}

	r.log.Debug("speech synthesized",
		zap.Int("chars", len(key)),
		zap.String("size", humanize.Bytes(uint64(len(audio.Data)))),
	)
	return Rendered{Ref: ref}, nil
}
