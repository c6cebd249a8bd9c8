package error_notificator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service forwards failures to the infra, at most once per source within
// the quiet window. Flapping providers would otherwise flood the chat.
type Service struct {
	infra  Notificator
	log    *zap.Logger
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewService(infra Notificator, window time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		infra:  infra,
		log:    log,
		window: window,
		now:    time.Now,
		last:   make(map[string]time.Time),
	}
}

func (s *Service) Notify(ctx context.Context, source string, err error, details string) error {
	now := s.now()

	s.mu.Lock()
	if t, ok := s.last[source]; ok && now.Sub(t) < s.window {
		s.mu.Unlock()
		s.log.Debug("alert suppressed", zap.String("source", source), zap.Error(err))
		return nil
	}
	s.last[source] = now
	s.mu.Unlock()

	if nerr := s.infra.Notify(ctx, source, err, details); nerr != nil {
		s.log.Warn("alert delivery failed", zap.String("source", source), zap.Error(nerr))
		return nerr
	}
	return nil
}
