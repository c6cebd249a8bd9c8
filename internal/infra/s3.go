package infra

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Vovarama1992/voice_mail/internal/config"
	"github.com/Vovarama1992/voice_mail/internal/ports"
)

// rendered clips are content-addressed by the cache, never rewritten
const speechCacheControl = "public, max-age=31536000, immutable"

type speechBucket struct {
	client *minio.Client
	bucket string
	base   string
}

// NewSpeechBucket connects to an S3-compatible endpoint and checks that the
// speech bucket exists.
func NewSpeechBucket(ctx context.Context, cfg config.S3Config) (ports.SpeechBucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check speech bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("speech bucket %q does not exist", cfg.Bucket)
	}

	scheme := "https"
	if !cfg.Secure {
		scheme = "http"
	}
	return &speechBucket{
		client: client,
		bucket: cfg.Bucket,
		base:   fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, url.PathEscape(cfg.Bucket)),
	}, nil
}

func (b *speechBucket) PutSpeech(ctx context.Context, key string, audio ports.Audio) (string, error) {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(audio.Data), int64(len(audio.Data)), minio.PutObjectOptions{
		ContentType:  audio.ContentType,
		CacheControl: speechCacheControl,
		UserMetadata: map[string]string{"rendered-at": time.Now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return "", fmt.Errorf("upload speech %s: %w", key, err)
	}
	return speechURL(b.base, key), nil
}

// speechURL escapes each key segment so spaces and unicode survive.
func speechURL(base, key string) string {
	parts := strings.Split(path.Clean("/"+key)[1:], "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return base + "/" + strings.Join(parts, "/")
}
