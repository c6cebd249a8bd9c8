package session

import (
	"go.uber.org/zap"
)

// Message is one server-sent event for the page.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type emitter interface {
	send(event string, data any)
}

// outbox buffers events until the page's stream reads them. A page that
// stops reading loses events rather than stalling the voice core.
type outbox struct {
	ch  chan Message
	log *zap.Logger
}

func newOutbox(size int, log *zap.Logger) *outbox {
	return &outbox{ch: make(chan Message, size), log: log}
}

func (o *outbox) send(event string, data any) {
	select {
	case o.ch <- Message{Event: event, Data: data}:
	default:
		o.log.Warn("session event dropped", zap.String("event", event))
	}
}
