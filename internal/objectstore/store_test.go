package objectstore_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sitesense-backend/internal/objectstore"
)

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"clip.mp4":    "video/mp4",
		"clip.MOV":    "video/mp4",
		"clip.avi":    "video/avi",
		"photo.jpg":   "image/jpeg",
		"photo.JPEG":  "image/jpeg",
		"photo.png":   "image/png",
		"notes.txt":   "application/octet-stream",
		"no-extension": "application/octet-stream",
	}
	for name, want := range cases {
		assert.Equal(t, want, objectstore.ContentTypeFor(name), name)
	}
}

func TestIsStreamable(t *testing.T) {
	assert.True(t, objectstore.IsStreamable("video/mp4"))
	assert.True(t, objectstore.IsStreamable("audio/mpeg"))
	assert.False(t, objectstore.IsStreamable("image/jpeg"))
}

func TestMemoryStore_EnsureBucketIdempotent(t *testing.T) {
	store := objectstore.NewMemoryStore("http://localhost:9000")
	ctx := context.Background()

	require.NoError(t, store.EnsureBucket(ctx, "sitesense-uploads"))
	require.NoError(t, store.EnsureBucket(ctx, "sitesense-uploads"))
	assert.Equal(t, 1, store.BucketCount())
}

func TestMemoryStore_PutGetDeleteList(t *testing.T) {
	store := objectstore.NewMemoryStore("http://localhost:9000")
	ctx := context.Background()
	require.NoError(t, store.EnsureBucket(ctx, "b"))

	url, err := store.Put(ctx, "b", "1700000000000-car.jpg", bytes.NewReader([]byte("jpeg")), 4, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/b/1700000000000-car.jpg", url)

	_, err = store.Put(ctx, "b", "other.png", bytes.NewReader([]byte("png")), 3, "image/png")
	require.NoError(t, err)

	obj, err := store.Get(ctx, "b", "1700000000000-car.jpg")
	require.NoError(t, err)
	data, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, int64(4), obj.Size)

	listed, err := store.List(ctx, "b", "1700")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "1700000000000-car.jpg", listed[0].Name)

	require.NoError(t, store.Delete(ctx, "b", "1700000000000-car.jpg"))
	require.NoError(t, store.Delete(ctx, "b", "1700000000000-car.jpg"))

	_, err = store.Get(ctx, "b", "1700000000000-car.jpg")
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestMemoryStore_PutMissingBucket(t *testing.T) {
	store := objectstore.NewMemoryStore("http://localhost:9000")

	_, err := store.Put(context.Background(), "missing", "a.jpg", bytes.NewReader(nil), 0, "image/jpeg")
	assert.ErrorIs(t, err, objectstore.ErrStorageWrite)
}
