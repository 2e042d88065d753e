package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	baseURL string

	mu      sync.RWMutex
	buckets map[string]map[string]memoryObject
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		buckets: make(map[string]map[string]memoryObject),
	}
}

func (m *MemoryStore) EnsureBucket(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string]memoryObject)
	}
	return nil
}

func (m *MemoryStore) Put(ctx context.Context, bucket, name string, data io.Reader, size int64, contentType string) (string, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("%w: read %s/%s: %v", ErrStorageWrite, bucket, name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return "", fmt.Errorf("%w: bucket %s does not exist", ErrStorageWrite, bucket)
	}
	objects[name] = memoryObject{data: buf, contentType: contentType, modified: time.Now().UTC()}
	return m.ObjectURL(bucket, name), nil
}

func (m *MemoryStore) Get(ctx context.Context, bucket, name string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.buckets[bucket][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, name)
	}
	return &Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
	}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, bucket, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets[bucket], name)
	return nil
}

// List returns objects sorted by name, matching S3 listing order.
func (m *MemoryStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects := make([]ObjectInfo, 0)
	for name, obj := range m.buckets[bucket] {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		objects = append(objects, ObjectInfo{
			Name:         name,
			Size:         int64(len(obj.data)),
			LastModified: obj.modified,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func (m *MemoryStore) ObjectURL(bucket, name string) string {
	return joinURL(m.baseURL, bucket, name)
}

// BucketCount reports how many buckets exist.
func (m *MemoryStore) BucketCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.buckets)
}
