package ports

import "context"

// SpeechBucket stores a rendered speech clip under key and returns the URL
// the page plays it from.
type SpeechBucket interface {
	PutSpeech(ctx context.Context, key string, audio Audio) (publicURL string, err error)
}
