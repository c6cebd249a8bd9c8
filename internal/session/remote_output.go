package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Vovarama1992/voice_mail/internal/speech"
)

var ErrUnknownPlayback = errors.New("unknown playback")

// RemoteOutput plays audio in the page. The page reports the natural end
// of each playback.
type RemoteOutput struct {
	out emitter

	mu      sync.Mutex
	streams map[string]*remoteStream
}

func NewRemoteOutput(out emitter) *RemoteOutput {
	return &RemoteOutput{
		out:     out,
		streams: make(map[string]*remoteStream),
	}
}

func (o *RemoteOutput) Play(ctx context.Context, ref string) (speech.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &remoteStream{
		id:   uuid.NewString(),
		o:    o,
		done: make(chan error, 1),
	}
	o.mu.Lock()
	o.streams[s.id] = s
	o.mu.Unlock()

	o.out.send("play", map[string]any{"playbackId": s.id, "audio": ref})
	return s, nil
}

// Ended completes a playback. A non-empty errMsg marks a decode error.
func (o *RemoteOutput) Ended(playbackID, errMsg string) error {
	o.mu.Lock()
	s, ok := o.streams[playbackID]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayback, playbackID)
	}

	var err error
	if errMsg != "" {
		err = fmt.Errorf("page playback: %s", errMsg)
	}
	s.finish(err)
	return nil
}

type remoteStream struct {
	id   string
	o    *RemoteOutput
	once sync.Once
	done chan error
}

func (s *remoteStream) Done() <-chan error { return s.done }

func (s *remoteStream) Stop() {
	s.o.out.send("stop_playback", map[string]any{"playbackId": s.id})
	s.finish(nil)
}

func (s *remoteStream) finish(err error) {
	s.once.Do(func() {
		s.o.mu.Lock()
		delete(s.o.streams, s.id)
		s.o.mu.Unlock()

		s.done <- err
		close(s.done)
	})
}
