package ports

import (
	"context"
	"errors"
)

var (
	ErrEmptyRequest         = errors.New("neither audio nor transcript supplied")
	ErrInvalidContext       = errors.New("unknown dictation context")
	ErrTranscriptionFailed  = errors.New("transcription failed")
	ErrClassificationFailed = errors.New("classification failed")
	ErrSynthesisFailed      = errors.New("synthesis failed")
)

// DictationContext tags which compose field a transcript belongs to.
type DictationContext string

const (
	ContextTo      DictationContext = "to"
	ContextSubject DictationContext = "subject"
	ContextBody    DictationContext = "body"
)

func (c DictationContext) Valid() bool {
	switch c {
	case ContextTo, ContextSubject, ContextBody:
		return true
	}
	return false
}

// TranscriptionRequest carries either a clip (as a data URI) or a raw
// transcript that only needs cleanup.
type TranscriptionRequest struct {
	Audio      string           `json:"audio,omitempty"`
	Transcript string           `json:"transcript,omitempty"`
	Context    DictationContext `json:"context"`
}

type ClassificationRequest struct {
	Audio string `json:"audio"`
	Path  string `json:"currentPath"`
}

// Audio is one synthesized payload.
type Audio struct {
	Data        []byte
	ContentType string
}

type Transcriber interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, req ClassificationRequest) (Command, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// SpeechToText turns raw audio into a plain transcript.
type SpeechToText interface {
	SpeechToText(ctx context.Context, audio []byte, mime string) (string, error)
}
