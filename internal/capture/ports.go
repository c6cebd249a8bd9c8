package capture

import (
	"context"
	"errors"
	"time"

	"github.com/Vovarama1992/voice_mail/internal/datauri"
)

var (
	// ErrMicrophoneUnavailable covers permission denial and device errors.
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")
	// ErrBusy is returned when another session already holds the microphone.
	ErrBusy = errors.New("microphone already in use")
)

// Microphone hands out the input device. Acquire is the only step that
// may block on the host (permission prompt) or fail.
type Microphone interface {
	Acquire(ctx context.Context) (Track, error)
}

// Track is one acquired input stream. Data is closed when the host has no
// more input for this cycle.
type Track interface {
	Encoding() string
	Data() <-chan []byte
	Release() error
}

// Flusher is implemented by tracks that only hand over buffered audio
// after being asked to stop, like a remote recorder uploading on stop.
type Flusher interface {
	RequestStop()
}

// Clip is the result of one start/stop cycle.
type Clip struct {
	Data      []byte
	Encoding  string
	StartedAt time.Time
	Duration  time.Duration
	TooShort  bool
}

func (c Clip) DataURI() string {
	return datauri.Encode(c.Encoding, c.Data)
}

type Config struct {
	MaxDuration time.Duration // hard cap per cycle, default 7s
	MinBytes    int           // below this a clip counts as silence, default 100
	// FlushTimeout bounds the wait for a Flusher's final audio after Stop.
	// Zero takes only what is already buffered.
	FlushTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxDuration: 7 * time.Second,
		MinBytes:    100,
	}
}
