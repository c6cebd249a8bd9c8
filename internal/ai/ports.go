package ai

import "context"

// Completer runs one chat completion. JSON mode forces a single JSON
// object in the reply.
type Completer interface {
	Complete(ctx context.Context, system, user string, jsonMode bool) (string, error)
}
