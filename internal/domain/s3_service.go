package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Vovarama1992/voice_mail/internal/datauri"
	"github.com/Vovarama1992/voice_mail/internal/ports"
)

type s3ArtifactStore struct {
	bucket ports.SpeechBucket
}

// NewS3ArtifactStore uploads rendered speech to the bucket and hands back
// its public URL.
func NewS3ArtifactStore(bucket ports.SpeechBucket) ports.ArtifactStore {
	return &s3ArtifactStore{bucket: bucket}
}

// ObjectKey is dated so a bucket lifecycle rule can expire old renders.
func (s *s3ArtifactStore) ObjectKey(_ string, contentType string) string {
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("speech/%s/%s.%s", date, uuid.NewString(), datauri.Extension(contentType))
}

func (s *s3ArtifactStore) Save(ctx context.Context, text string, audio ports.Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("empty audio for %q", text)
	}

	key := s.ObjectKey(text, audio.ContentType)
	return s.bucket.PutSpeech(ctx, key, audio)
}

type inlineArtifactStore struct{}

// NewInlineArtifactStore keeps audio inside the reference itself as a data
// URI. Used when no bucket is configured.
func NewInlineArtifactStore() ports.ArtifactStore {
	return inlineArtifactStore{}
}

func (inlineArtifactStore) ObjectKey(text, _ string) string {
	return text
}

func (inlineArtifactStore) Save(_ context.Context, text string, audio ports.Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("empty audio for %q", text)
	}
	return datauri.Encode(audio.ContentType, audio.Data), nil
}
