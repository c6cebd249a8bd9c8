package ports

import "context"

// ArtifactStore keeps rendered speech somewhere playable and returns a
// reference the page can hand straight to an audio element.
type ArtifactStore interface {
	ObjectKey(text, contentType string) string
	Save(ctx context.Context, text string, audio Audio) (ref string, err error)
}
