// Package capturetest provides a scripted in-memory microphone for tests
// and non-browser harnesses.
package capturetest

import (
	"context"
	"sync"

	"github.com/Vovarama1992/voice_mail/internal/capture"
)

// Take scripts one acquisition. Hold keeps the track open until the
// capture is stopped (or hits its duration cap).
type Take struct {
	Data []byte
	Err  error
	Hold bool
}

// Utterance is a take long enough to pass the default too-short check.
func Utterance(text string) Take {
	data := []byte(text)
	for len(data) < 256 {
		data = append(data, ' ')
	}
	return Take{Data: data}
}

// Silence is a take below the default too-short threshold.
func Silence() Take {
	return Take{Data: []byte{0, 0, 0}}
}

// Mic hands out scripted takes in order. Once the script is exhausted
// every acquisition holds until stopped.
type Mic struct {
	Encoding string

	mu       sync.Mutex
	script   []Take
	acquired int
	released int

	events chan int
}

func NewMic(takes ...Take) *Mic {
	return &Mic{
		Encoding: "audio/webm;codecs=opus",
		script:   takes,
		events:   make(chan int, 256),
	}
}

func (m *Mic) Push(takes ...Take) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, takes...)
}

// Acquisitions delivers the running count after every successful acquire.
func (m *Mic) Acquisitions() <-chan int {
	return m.events
}

func (m *Mic) Acquired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

// Open is the number of tracks acquired but not yet released.
func (m *Mic) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired - m.released
}

func (m *Mic) Acquire(ctx context.Context) (capture.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	take := Take{Hold: true}
	if len(m.script) > 0 {
		take = m.script[0]
		m.script = m.script[1:]
	}
	if take.Err != nil {
		m.mu.Unlock()
		return nil, take.Err
	}
	m.acquired++
	n := m.acquired
	m.mu.Unlock()

	t := &track{
		mic:      m,
		encoding: m.Encoding,
		data:     make(chan []byte, 1),
	}
	if !take.Hold {
		if len(take.Data) > 0 {
			t.data <- take.Data
		}
		close(t.data)
	}

	select {
	case m.events <- n:
	default:
	}
	return t, nil
}

type track struct {
	mic      *Mic
	encoding string
	data     chan []byte
	once     sync.Once
}

func (t *track) Encoding() string     { return t.encoding }
func (t *track) Data() <-chan []byte { return t.data }

func (t *track) Release() error {
	t.once.Do(func() {
		t.mic.mu.Lock()
		t.mic.released++
		t.mic.mu.Unlock()
	})
	return nil
}
