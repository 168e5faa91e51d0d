package report

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive uploads rendered reports to an object-storage bucket as an
// append-only audit trail. It is optional; a nil *Archive is a no-op.
type Archive struct {
	client *minio.Client
	bucket string
}

// NewArchive connects to the object store and ensures the bucket exists.
func NewArchive(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Archive{client: client, bucket: bucket}, nil
}

// Store uploads the file and returns the object key.
func (a *Archive) Store(ctx context.Context, f File) (string, error) {
	key := fmt.Sprintf("%s/%s_%s", time.Now().UTC().Format("2006/01"), uuid.NewString(), f.Filename)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(f.Data), int64(len(f.Data)),
		minio.PutObjectOptions{ContentType: f.MimeType})
	if err != nil {
		return "", fmt.Errorf("archive report %s: %w", f.Filename, err)
	}
	return key, nil
}

// StoreAsync uploads in the background; failures are logged, never surfaced.
// Archival is best-effort and must not delay or break the conversation.
func (a *Archive) StoreAsync(f File) {
	if a == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if key, err := a.Store(ctx, f); err != nil {
			log.Printf("archive: %v", err)
		} else {
			log.Printf("archive: stored %s", key)
		}
	}()
}
