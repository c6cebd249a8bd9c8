package speech

import "context"

// Output is the audio output device. Only the controller drives it, one
// stream at a time.
type Output interface {
	Play(ctx context.Context, ref string) (Stream, error)
}

// Stream is one playing artifact. Done yields once when playback ends:
// nil on natural end or after Stop, non-nil on a decode error.
type Stream interface {
	Done() <-chan error
	Stop()
}

// Speaker is what voice flows need from playback.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
}
