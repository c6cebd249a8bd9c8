// Package audiocache deduplicates speech synthesis by exact text. It is an
// optimization only: backend failures degrade to a miss and writes are
// best effort.
package audiocache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_mail/internal/metrics"
)

type Service struct {
	repo Repo
	log  *zap.Logger
	m    *metrics.Metrics
	now  func() time.Time
}

func NewService(repo Repo, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo: repo,
		log:  log,
		m:    metrics.Get(),
		now:  time.Now,
	}
}

// Lookup returns the entry for text. Any backend error is reported as a miss.
func (s *Service) Lookup(ctx context.Context, text string) (*Entry, bool) {
	key := Key(text)
	if key == "" || s.repo == nil {
		return nil, false
	}

	e, err := s.repo.Get(ctx, key)
	switch {
	case err == nil && e != nil:
		s.m.CacheLookups.WithLabelValues("hit").Inc()
		return e, true
	case err == nil, errors.Is(err, ErrNotFound):
		s.m.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	default:
		s.m.CacheLookups.WithLabelValues("error").Inc()
		s.log.Warn("speech cache lookup failed, treating as miss", zap.Error(err))
		return nil, false
	}
}

// Store writes text → ref if absent. A concurrent duplicate is dropped:
// either copy is fine to serve.
func (s *Service) Store(ctx context.Context, text, ref string) StoreResult {
	key := Key(text)
	if key == "" || ref == "" || s.repo == nil {
		return Failed
	}

	err := s.repo.Insert(ctx, Entry{
		Key:       key,
		AudioRef:  ref,
		CreatedAt: s.now(),
	})

	res := Stored
	switch {
	case err == nil:
	case errors.Is(err, ErrConflict):
		res = ConflictIgnored
		s.log.Debug("speech cache duplicate ignored", zap.Int("key_len", len(key)))
	default:
		res = Failed
		s.log.Warn("speech cache store failed", zap.Error(err))
	}

	s.m.CacheStores.WithLabelValues(res.String()).Inc()
	return res
}
