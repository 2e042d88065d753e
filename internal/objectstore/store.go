// Package objectstore is the gateway to the S3-compatible blob store that
// holds uploaded originals and processed results.
package objectstore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

var (
	ErrStorageUnavailable = errors.New("object storage unavailable")
	ErrStorageWrite       = errors.New("object storage rejected write")
	ErrObjectNotFound     = errors.New("object not found")
)

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag,omitempty"`
}

// Object is an open object stream. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

type Store interface {
	// EnsureBucket creates the bucket with a public-read policy if absent.
	// Calling it for an existing bucket is a no-op.
	EnsureBucket(ctx context.Context, bucket string) error
	// Put stores data under bucket/name and returns the object's public URL.
	Put(ctx context.Context, bucket, name string, data io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, bucket, name string) (*Object, error)
	// Delete removes bucket/name. Deleting an absent object succeeds.
	Delete(ctx context.Context, bucket, name string) error
	// List returns objects whose names start with prefix, in backend order.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	ObjectURL(bucket, name string) string
}

// publicReadPolicy grants anonymous GetObject on every object in bucket.
func publicReadPolicy(bucket string) string {
	return `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::` + bucket + `/*"]}]}`
}

func joinURL(base, bucket, name string) string {
	return strings.TrimSuffix(base, "/") + "/" + bucket + "/" + name
}

// ContentTypeFor infers a content type from the object name's extension.
func ContentTypeFor(name string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")) {
	case "mp4", "mov":
		return "video/mp4"
	case "avi":
		return "video/avi"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// IsStreamable reports whether range requests should be honoured for the type.
func IsStreamable(contentType string) bool {
	return strings.HasPrefix(contentType, "video/") || strings.HasPrefix(contentType, "audio/")
}
