package audiocache

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("speech cache entry not found")
	ErrConflict = errors.New("speech cache entry already exists")
)

// Entry maps exact spoken text to a playable audio reference. Entries are
// immutable once written.
type Entry struct {
	Key       string    `json:"key"`
	AudioRef  string    `json:"audioRef"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repo is the backing store. Insert must be insert-if-absent and report
// ErrConflict when the key already exists.
type Repo interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Insert(ctx context.Context, e Entry) error
}

// Key is the cache key for text: trimmed, otherwise exact.
func Key(text string) string {
	return strings.TrimSpace(text)
}

type StoreResult int

const (
	Stored StoreResult = iota
	ConflictIgnored
	Failed
)

func (r StoreResult) String() string {
	switch r {
	case Stored:
		return "stored"
	case ConflictIgnored:
		return "conflict"
	}
	return "error"
}
