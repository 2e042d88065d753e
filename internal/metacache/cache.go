// Package metacache keeps each user's record of uploaded files and
// processing results.
package metacache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"sitesense-backend/internal/models"
)

const (
	FilesKey   = "sitesense_uploaded_files"
	ResultsKey = "sitesense_processing_results"
	videoKey   = "sitesense_video_"
)

// ErrOrphanResult means a processing result references a file id that is not
// in the owner's uploaded files.
var ErrOrphanResult = errors.New("processing result has no matching uploaded file")

// Cache reads and replaces whole collections. Two writers racing on the same
// owner can lose an update.
type Cache struct {
	kv  KV
	log *zap.Logger
}

func New(kv KV, log *zap.Logger) *Cache {
	return &Cache{kv: kv, log: log}
}

// SaveFiles replaces the owner's files and drops any stored result whose file
// is no longer listed.
func (c *Cache) SaveFiles(ctx context.Context, owner string, files []models.UploadedFile) error {
	if err := c.put(ctx, owner, FilesKey, files); err != nil {
		return err
	}

	results, err := c.GetResults(ctx, owner)
	if err != nil {
		return err
	}
	kept := pruneOrphans(files, results)
	if len(kept) == len(results) {
		return nil
	}
	c.log.Info("Dropping results for removed files",
		zap.String("owner", owner),
		zap.Int("dropped", len(results)-len(kept)))
	return c.put(ctx, owner, ResultsKey, kept)
}

func (c *Cache) GetFiles(ctx context.Context, owner string) ([]models.UploadedFile, error) {
	var files []models.UploadedFile
	ok, err := c.load(ctx, owner, FilesKey, &files)
	if err != nil {
		return nil, err
	}
	if !ok || files == nil {
		return []models.UploadedFile{}, nil
	}
	return files, nil
}

// SaveResults replaces the owner's results. Every result must reference a
// stored file.
func (c *Cache) SaveResults(ctx context.Context, owner string, results []models.ProcessingResult) error {
	files, err := c.GetFiles(ctx, owner)
	if err != nil {
		return err
	}
	if id, ok := findOrphan(files, results); ok {
		return fmt.Errorf("%w: %s", ErrOrphanResult, id)
	}
	return c.put(ctx, owner, ResultsKey, results)
}

func (c *Cache) GetResults(ctx context.Context, owner string) ([]models.ProcessingResult, error) {
	var results []models.ProcessingResult
	ok, err := c.load(ctx, owner, ResultsKey, &results)
	if err != nil {
		return nil, err
	}
	if !ok || results == nil {
		return []models.ProcessingResult{}, nil
	}
	return results, nil
}

// ValidResults returns the results with their files, or ErrOrphanResult when
// any result has lost its file.
func (c *Cache) ValidResults(ctx context.Context, owner string) ([]models.ProcessingResult, []models.UploadedFile, error) {
	files, err := c.GetFiles(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	results, err := c.GetResults(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	if id, ok := findOrphan(files, results); ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrOrphanResult, id)
	}
	return results, files, nil
}

// ClearAll removes the owner's files, results and cached videos.
func (c *Cache) ClearAll(ctx context.Context, owner string) error {
	if err := c.kv.Delete(ctx, owner, FilesKey, ResultsKey); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	if err := c.kv.DeletePrefix(ctx, owner, videoKey); err != nil {
		return fmt.Errorf("failed to clear cached videos: %w", err)
	}
	return nil
}

func (c *Cache) SaveVideo(ctx context.Context, owner, fileID string, data []byte) error {
	if err := c.kv.Set(ctx, owner, videoKey+fileID, data); err != nil {
		return fmt.Errorf("failed to cache video %s: %w", fileID, err)
	}
	return nil
}

func (c *Cache) GetVideo(ctx context.Context, owner, fileID string) ([]byte, bool, error) {
	data, ok, err := c.kv.Get(ctx, owner, videoKey+fileID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached video %s: %w", fileID, err)
	}
	return data, ok, nil
}

func (c *Cache) put(ctx context.Context, owner, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.kv.Set(ctx, owner, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// load decodes key into v and reports whether a usable value was found.
// Undecodable data is dropped; backend errors are returned and leave the
// stored value alone.
func (c *Cache) load(ctx context.Context, owner, key string, v any) (bool, error) {
	data, ok, err := c.kv.Get(ctx, owner, key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		c.log.Warn("Discarding corrupt cache entry",
			zap.String("owner", owner),
			zap.String("key", key),
			zap.Error(err))
		if delErr := c.kv.Delete(ctx, owner, key); delErr != nil {
			return false, fmt.Errorf("failed to discard corrupt %s: %w", key, delErr)
		}
		return false, nil
	}
	return true, nil
}

func pruneOrphans(files []models.UploadedFile, results []models.ProcessingResult) []models.ProcessingResult {
	ids := make(map[string]struct{}, len(files))
	for _, f := range files {
		ids[f.ID] = struct{}{}
	}
	kept := make([]models.ProcessingResult, 0, len(results))
	for _, r := range results {
		if _, ok := ids[r.FileID]; ok {
			kept = append(kept, r)
		}
	}
	return kept
}

func findOrphan(files []models.UploadedFile, results []models.ProcessingResult) (string, bool) {
	ids := make(map[string]struct{}, len(files))
	for _, f := range files {
		ids[f.ID] = struct{}{}
	}
	for _, r := range results {
		if _, ok := ids[r.FileID]; !ok {
			return r.FileID, true
		}
	}
	return "", false
}
