package infra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/Vovarama1992/voice_mail/internal/audiocache"
)

const uniqueViolation = "23505"

// SpeechCacheSchema is applied on startup; text_key carries the uniqueness
// constraint the cache relies on for duplicate detection.
const SpeechCacheSchema = `
CREATE TABLE IF NOT EXISTS speech_cache (
	id         BIGSERIAL PRIMARY KEY,
	text_key   TEXT NOT NULL UNIQUE,
	audio_ref  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type speechCacheRepo struct {
	db *sql.DB
}

func NewSpeechCacheRepo(db *sql.DB) audiocache.Repo {
	return &speechCacheRepo{db: db}
}

func EnsureSpeechCacheSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, SpeechCacheSchema)
	return err
}

func (r *speechCacheRepo) Get(ctx context.Context, key string) (*audiocache.Entry, error) {
	var e audiocache.Entry
	err := r.db.QueryRowContext(ctx, `
		SELECT text_key, audio_ref, created_at
		FROM speech_cache
		WHERE text_key = $1
	`, key).Scan(&e.Key, &e.AudioRef, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, audiocache.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *speechCacheRepo) Insert(ctx context.Context, e audiocache.Entry) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO speech_cache (text_key, audio_ref, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (text_key) DO NOTHING
	`, e.Key, e.AudioRef, e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return audiocache.ErrConflict
		}
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return audiocache.ErrConflict
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
