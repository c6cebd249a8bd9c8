// Package events is the typed channel between the voice core and the page
// layer. Pages subscribe to action names; the dispatcher publishes.
package events

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Vovarama1992/voice_mail/internal/ports"
)

var ErrUnknownAction = errors.New("unknown page action")

// Event carries the classifier output unmodified. Bounds checks on EmailID
// belong to the subscriber.
type Event struct {
	Action  string        `json:"action"`
	Payload ports.Command `json:"payload"`
	At      time.Time     `json:"at"`
}

type Handler func(Event)

type Bus struct {
	log *zap.Logger

	mu        sync.RWMutex
	contracts map[string]Contract
	subs      map[string]map[uint64]Handler
	all       map[uint64]Handler
	next      uint64
}

func NewBus(log *zap.Logger, contracts ...Contract) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bus{
		log:       log,
		contracts: make(map[string]Contract),
		subs:      make(map[string]map[uint64]Handler),
		all:       make(map[uint64]Handler),
	}
	for _, c := range contracts {
		if err := b.Register(c); err != nil {
			log.Warn("contract dropped", zap.String("description", c.Description), zap.Error(err))
		}
	}
	return b
}

// Register adds or replaces the contract for c.Action.
func (b *Bus) Register(c Contract) error {
	if c.Action == "" {
		return fmt.Errorf("register contract: empty action name")
	}
	b.mu.Lock()
	b.contracts[c.Action] = c
	b.mu.Unlock()
	return nil
}

func (b *Bus) Contract(action string) (Contract, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.contracts[action]
	return c, ok
}

// Contracts returns the registered contracts sorted by action name.
func (b *Bus) Contracts() []Contract {
	b.mu.RLock()
	out := make([]Contract, 0, len(b.contracts))
	for _, c := range b.contracts {
		out = append(out, c)
	}
	b.mu.RUnlock()

	slices.SortFunc(out, func(a, c Contract) int {
		return strings.Compare(a.Action, c.Action)
	})
	return out
}

// Subscribe registers h for one action. Subscribing before the contract
// is registered is allowed.
func (b *Bus) Subscribe(action string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	if b.subs[action] == nil {
		b.subs[action] = make(map[uint64]Handler)
	}
	b.subs[action][id] = h

	return func() {
		b.mu.Lock()
		delete(b.subs[action], id)
		b.mu.Unlock()
	}
}

// SubscribeAll receives every published event.
func (b *Bus) SubscribeAll(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.all[id] = h

	return func() {
		b.mu.Lock()
		delete(b.all, id)
		b.mu.Unlock()
	}
}

// Publish delivers ev synchronously and returns how many handlers saw it.
// Zero handlers is not an error: no page may be listening.
func (b *Bus) Publish(ev Event) (int, error) {
	b.mu.RLock()
	if _, ok := b.contracts[ev.Action]; !ok {
		b.mu.RUnlock()
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, ev.Action)
	}
	handlers := make([]Handler, 0, len(b.subs[ev.Action])+len(b.all))
	for _, h := range b.subs[ev.Action] {
		handlers = append(handlers, h)
	}
	for _, h := range b.all {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	for _, h := range handlers {
		h(ev)
	}

	b.log.Debug("page event published",
		zap.String("action", ev.Action),
		zap.Int("handlers", len(handlers)),
	)
	return len(handlers), nil
}
