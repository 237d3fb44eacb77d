// Package snapshot archives topic sets to S3-compatible object storage after
// each successful save, so earlier versions of a session's outline can be
// recovered outside the database.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pulse/api/internal/outline"
	"pulse/api/internal/reconcile"
	"pulse/api/internal/store"
)

// Topic is the archived form of one active topic.
type Topic struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics"`
	SortOrder int      `json:"sortOrder"`
}

// Snapshot is the body of one archived object.
type Snapshot struct {
	SessionID string            `json:"sessionId"`
	TakenAt   time.Time         `json:"takenAt"`
	Summary   reconcile.Summary `json:"summary"`
	Previous  []Topic           `json:"previous"`
	Current   []Topic           `json:"current"`
}

// New builds a snapshot from the active sets before and after a save.
func New(sessionID string, takenAt time.Time, summary reconcile.Summary, previous, current []store.Topic) Snapshot {
	return Snapshot{
		SessionID: sessionID,
		TakenAt:   takenAt.UTC(),
		Summary:   summary,
		Previous:  topics(previous),
		Current:   topics(current),
	}
}

func topics(in []store.Topic) []Topic {
	out := make([]Topic, 0, len(in))
	for _, t := range in {
		block := outline.Decode(t.Text)
		out = append(out, Topic{ID: t.ID, Title: block.Title, Subtopics: block.Subtopics, SortOrder: t.SortOrder})
	}
	return out
}

// Key returns the object key for a snapshot.
func Key(sessionID string, takenAt time.Time) string {
	return fmt.Sprintf("sessions/%s/%d.json", sessionID, takenAt.UnixNano())
}

// putter is the part of *minio.Client the archive writes through.
type putter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archive writes snapshots into one bucket.
type Archive struct {
	client putter
	bucket string
}

// Options configures the minio connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Open connects to the object store and creates the bucket when missing.
func Open(ctx context.Context, opts Options) (*Archive, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}
	return &Archive{client: client, bucket: opts.Bucket}, nil
}

// Save writes the snapshot and returns its object key.
func (a *Archive) Save(ctx context.Context, snap Snapshot) (string, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	key := Key(snap.SessionID, snap.TakenAt)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return key, nil
}
