package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	storage "github.com/supabase-community/storage-go"
	"go.uber.org/zap"
)

// SupabaseStore keeps objects in Supabase Storage. Public URLs follow the
// Supabase layout rather than scheme://host:port/bucket/name.
type SupabaseStore struct {
	client  *storage.Client
	baseURL string
	log     *zap.Logger
}

func NewSupabaseStore(supabaseURL, serviceKey string, log *zap.Logger) *SupabaseStore {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	return &SupabaseStore{
		client:  storage.NewClient(baseURL+"/storage/v1", serviceKey, nil),
		baseURL: baseURL,
		log:     log,
	}
}

func (s *SupabaseStore) EnsureBucket(ctx context.Context, bucket string) error {
	if _, err := s.client.GetBucket(bucket); err == nil {
		return nil
	}

	s.log.Info("Creating bucket", zap.String("bucket", bucket))
	_, err := s.client.CreateBucket(bucket, storage.BucketOptions{Public: true})
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return fmt.Errorf("%w: create bucket %s: %v", ErrStorageUnavailable, bucket, err)
	}
	return nil
}

func (s *SupabaseStore) Put(ctx context.Context, bucket, name string, data io.Reader, size int64, contentType string) (string, error) {
	upsert := true
	_, err := s.client.UploadFile(bucket, name, data, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		s.log.Error("Failed to upload object",
			zap.String("bucket", bucket),
			zap.String("object", name),
			zap.Error(err))
		return "", fmt.Errorf("%w: put %s/%s: %v", ErrStorageWrite, bucket, name, err)
	}
	return s.ObjectURL(bucket, name), nil
}

func (s *SupabaseStore) Get(ctx context.Context, bucket, name string) (*Object, error) {
	data, err := s.client.DownloadFile(bucket, name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, name)
		}
		return nil, fmt.Errorf("%w: get %s/%s: %v", ErrStorageUnavailable, bucket, name, err)
	}

	return &Object{
		Body:        io.NopCloser(bytes.NewReader(data)),
		Size:        int64(len(data)),
		ContentType: ContentTypeFor(name),
	}, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, bucket, name string) error {
	if _, err := s.client.RemoveFile(bucket, []string{name}); err != nil {
		return fmt.Errorf("%w: delete %s/%s: %v", ErrStorageUnavailable, bucket, name, err)
	}
	return nil
}

// List reads the bucket root and filters by name prefix, since Supabase
// lists by folder rather than by key prefix.
func (s *SupabaseStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	files, err := s.client.ListFiles(bucket, "", storage.FileSearchOptions{Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorageUnavailable, bucket, err)
	}

	objects := make([]ObjectInfo, 0, len(files))
	for _, f := range files {
		if !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		objects = append(objects, ObjectInfo{Name: f.Name})
	}
	return objects, nil
}

func (s *SupabaseStore) ObjectURL(bucket, name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, name)
}
