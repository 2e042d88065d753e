package metacache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"sitesense-backend/internal/metacache"
	"sitesense-backend/internal/models"
)

func sampleFiles() []models.UploadedFile {
	return []models.UploadedFile{
		{ID: "1718000000000-aaaa", FileName: "site.jpg", MimeType: "image/jpeg", ByteSize: 2 << 20, MediaKind: models.MediaImage},
		{ID: "1718000000001-bbbb", FileName: "road.mp4", MimeType: "video/mp4", ByteSize: 10 << 20, MediaKind: models.MediaVideo},
	}
}

func TestCache_FilesRoundTrip(t *testing.T) {
	cache := metacache.New(metacache.NewMemoryKV(), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, cache.SaveFiles(ctx, "user-1", sampleFiles()))

	got, err := cache.GetFiles(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, sampleFiles(), got)
}

func TestCache_EmptyWhenNothingStored(t *testing.T) {
	cache := metacache.New(metacache.NewMemoryKV(), zaptest.NewLogger(t))

	files, err := cache.GetFiles(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)

	results, err := cache.GetResults(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCache_ScopedPerOwner(t *testing.T) {
	cache := metacache.New(metacache.NewMemoryKV(), zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, cache.SaveFiles(ctx, "user-1", sampleFiles()))

	got, err := cache.GetFiles(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCache_SaveFilesReplacesWholeList(t *testing.T) {
	cache := metacache.New(metacache.NewMemoryKV(), zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, cache.SaveFiles(ctx, "user-1", sampleFiles()))
	require.NoError(t, cache.SaveFiles(ctx, "user-1", sampleFiles()[:1]))

	got, err := cache.GetFiles(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCache_SaveResultsRejectsOrphan(t *testing.T) {
	cache := metacache.New(metacache.NewMemoryKV(), zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, cache.SaveFiles(ctx, "user-1", sampleFiles()))

	err := cache.SaveResults(ctx, "user-1", []models.ProcessingResult{{FileID: "missing"}})
	assert.ErrorIs(t, err, metacache.ErrOrphanResult)

	results, err := cache.GetResults(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCache_SaveFilesDropsResultsOfRemovedFiles(t *testing.T) {
	cache := metacache.New(metacache.NewMemoryKV(), zaptest.NewLogger(t))
	ctx := context.Background()
	files := sampleFiles()
	require.NoError(t, cache.SaveFiles(ctx, "user-1", files))
	require.NoError(t, cache.SaveResults(ctx, "user-1", []models.ProcessingResult{
		{FileID: files[0].ID, ObjectTypes: []string{"Person"}},
		{FileID: files[1].ID, ObjectTypes: []string{"Car"}},
	}))

	require.NoError(t, cache.SaveFiles(ctx, "user-1", files[:1]))

	results, gotFiles, err := cache.ValidResults(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, gotFiles, 1)
	require.Len(t, results, 1)
	assert.Equal(t, files[0].ID, results[0].FileID)
}

func TestCache_ValidResultsDetectsOrphan(t *testing.T) {
	kv := metacache.NewMemoryKV()
	cache := metacache.New(kv, zaptest.NewLogger(t))
	ctx := context.Background()
	files := sampleFiles()
	require.NoError(t, cache.SaveFiles(ctx, "user-1", files))
	require.NoError(t, cache.SaveResults(ctx, "user-1", []models.ProcessingResult{
		{FileID: files[1].ID, ObjectTypes: []string{"Car"}, Timestamp: time.Unix(1718000000, 0).UTC()},
	}))

	results, gotFiles, err := cache.ValidResults(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Len(t, gotFiles, 2)

	require.NoError(t, kv.Set(ctx, "user-1", metacache.ResultsKey, []byte(`[{"fileId":"gone"}]`)))
	_, _, err = cache.ValidResults(ctx, "user-1")
	assert.ErrorIs(t, err, metacache.ErrOrphanResult)
}

func TestCache_ClearAll(t *testing.T) {
	cache := metacache.New(metacache.NewMemoryKV(), zaptest.NewLogger(t))
	ctx := context.Background()
	files := sampleFiles()
	require.NoError(t, cache.SaveFiles(ctx, "user-1", files))
	require.NoError(t, cache.SaveResults(ctx, "user-1", []models.ProcessingResult{{FileID: files[0].ID}}))
	require.NoError(t, cache.SaveVideo(ctx, "user-1", files[1].ID, []byte("mp4")))

	require.NoError(t, cache.ClearAll(ctx, "user-1"))

	gotFiles, _ := cache.GetFiles(ctx, "user-1")
	gotResults, _ := cache.GetResults(ctx, "user-1")
	_, ok, _ := cache.GetVideo(ctx, "user-1", files[1].ID)
	assert.Empty(t, gotFiles)
	assert.Empty(t, gotResults)
	assert.False(t, ok)
}

func TestCache_VideoRoundTrip(t *testing.T) {
	cache := metacache.New(metacache.NewMemoryKV(), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, cache.SaveVideo(ctx, "user-1", "file-1", []byte{0x00, 0x01}))
	data, ok, err := cache.GetVideo(ctx, "user-1", "file-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x01}, data)
}

func TestCache_CorruptEntryIsDiscarded(t *testing.T) {
	kv := metacache.NewMemoryKV()
	cache := metacache.New(kv, zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "user-1", metacache.FilesKey, []byte("{not json")))

	files, err := cache.GetFiles(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, files)

	_, ok, _ := kv.Get(ctx, "user-1", metacache.FilesKey)
	assert.False(t, ok)
}

type failingKV struct {
	*metacache.MemoryKV
	deletes int
}

func (f *failingKV) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (f *failingKV) Delete(ctx context.Context, owner string, keys ...string) error {
	f.deletes++
	return nil
}

func TestCache_BackendErrorDoesNotReset(t *testing.T) {
	kv := &failingKV{MemoryKV: metacache.NewMemoryKV()}
	cache := metacache.New(kv, zaptest.NewLogger(t))

	_, err := cache.GetFiles(context.Background(), "user-1")
	assert.Error(t, err)
	assert.Zero(t, kv.deletes)
}
