package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vovarama1992/voice_mail/internal/capture"
	"github.com/Vovarama1992/voice_mail/internal/datauri"
)

var (
	ErrUnknownRecording = errors.New("unknown recording")
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrAckTimeout       = errors.New("microphone permission timed out")
)

// RemoteMic is a microphone that lives in the page. Acquire asks the page
// to start recording and waits for its permission answer.
type RemoteMic struct {
	out         emitter
	maxDuration time.Duration
	ackTimeout  time.Duration

	mu      sync.Mutex
	pending map[string]chan error
	tracks  map[string]*remoteTrack
}

func NewRemoteMic(out emitter, maxDuration, ackTimeout time.Duration) *RemoteMic {
	return &RemoteMic{
		out:         out,
		maxDuration: maxDuration,
		ackTimeout:  ackTimeout,
		pending:     make(map[string]chan error),
		tracks:      make(map[string]*remoteTrack),
	}
}

func (m *RemoteMic) Acquire(ctx context.Context) (capture.Track, error) {
	t := &remoteTrack{
		id:       uuid.NewString(),
		mic:      m,
		encoding: "audio/webm",
		data:     make(chan []byte, 1),
	}
	ack := make(chan error, 1)

	// registered up front: the upload may race the ack
	m.mu.Lock()
	m.pending[t.id] = ack
	m.tracks[t.id] = t
	m.mu.Unlock()

	m.out.send("start_recording", map[string]any{
		"recordingId": t.id,
		"maxMs":       m.maxDuration.Milliseconds(),
	})

	timer := time.NewTimer(m.ackTimeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-ack:
	case <-timer.C:
		err = ErrAckTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}

	m.mu.Lock()
	delete(m.pending, t.id)
	if err != nil {
		delete(m.tracks, t.id)
	}
	m.mu.Unlock()

	if err != nil {
		if !errors.Is(err, ErrPermissionDenied) {
			m.out.send("release_microphone", map[string]any{"recordingId": t.id})
		}
		return nil, err
	}
	return t, nil
}

// Ack delivers the page's permission answer for a pending Acquire.
func (m *RemoteMic) Ack(recordingID string, granted bool, reason string) error {
	m.mu.Lock()
	ch, ok := m.pending[recordingID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRecording, recordingID)
	}

	var err error
	if !granted {
		err = ErrPermissionDenied
		if reason != "" {
			err = fmt.Errorf("%w: %s", ErrPermissionDenied, reason)
		}
	}
	select {
	case ch <- err:
	default:
	}
	return nil
}

// Deliver hands the recorded clip (a data URI) to the live track and ends
// its input.
func (m *RemoteMic) Deliver(recordingID, audio string) error {
	m.mu.Lock()
	t, ok := m.tracks[recordingID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRecording, recordingID)
	}

	mime, data, err := datauri.Decode(audio)
	if err != nil {
		return err
	}
	t.deliver(mime, data)
	return nil
}

type remoteTrack struct {
	id  string
	mic *RemoteMic

	mu       sync.Mutex
	encoding string

	data        chan []byte
	deliverOnce sync.Once
	stopOnce    sync.Once
	releaseOnce sync.Once
}

func (t *remoteTrack) Encoding() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.encoding
}

func (t *remoteTrack) Data() <-chan []byte { return t.data }

func (t *remoteTrack) deliver(mime string, data []byte) {
	t.deliverOnce.Do(func() {
		if mime != "" {
			t.mu.Lock()
			t.encoding = mime
			t.mu.Unlock()
		}
		if len(data) > 0 {
			t.data <- data
		}
		close(t.data)
	})
}

// RequestStop asks the page to stop recording and upload.
func (t *remoteTrack) RequestStop() {
	t.stopOnce.Do(func() {
		t.mic.out.send("stop_recording", map[string]any{"recordingId": t.id})
	})
}

func (t *remoteTrack) Release() error {
	t.releaseOnce.Do(func() {
		t.mic.mu.Lock()
		delete(t.mic.tracks, t.id)
		t.mic.mu.Unlock()
		t.mic.out.send("release_microphone", map[string]any{"recordingId": t.id})
	})
	return nil
}
