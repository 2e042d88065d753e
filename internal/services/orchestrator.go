// Package services sequences uploads, detection calls and result bookkeeping.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"sitesense-backend/internal/detection"
	"sitesense-backend/internal/metacache"
	"sitesense-backend/internal/models"
	"sitesense-backend/internal/objectstore"
)

// maxParallel bounds concurrent uploads or detection calls per batch.
const maxParallel = 4

type Detector interface {
	Detect(ctx context.Context, payload []byte, fileName string, kind models.MediaKind, categories []string) (*detection.Output, error)
}

type OrchestratorConfig struct {
	UploadBucket    string
	ProcessedBucket string
	MaxFileCount    int
	MaxTotalBytes   int64
}

// FileInput is one file picked for upload.
type FileInput struct {
	Name     string
	MimeType string
	Size     int64
	Open     func() (io.ReadSeekCloser, error)
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

// BytesFile wraps in-memory data as a FileInput.
func BytesFile(name, mimeType string, data []byte) FileInput {
	return FileInput{
		Name:     name,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Open: func() (io.ReadSeekCloser, error) {
			return nopSeekCloser{bytes.NewReader(data)}, nil
		},
	}
}

type Orchestrator struct {
	store    objectstore.Store
	cache    *metacache.Cache
	detector Detector
	cfg      OrchestratorConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewOrchestrator(store objectstore.Store, cache *metacache.Cache, detector Detector, cfg OrchestratorConfig, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		cache:    cache,
		detector: detector,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// UploadFiles stores a batch of files and appends the successful ones to the
// owner's uploaded list. Limits apply to the stored and new files together;
// a batch over either limit is rejected before anything is written.
func (o *Orchestrator) UploadFiles(ctx context.Context, owner string, files []FileInput) ([]models.UploadedFile, *BatchResult[models.UploadedFile], error) {
	if len(files) == 0 {
		return nil, nil, validationErrorf("No files selected")
	}

	existing, err := o.cache.GetFiles(ctx, owner)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load uploaded files: %w", err)
	}

	if len(existing)+len(files) > o.cfg.MaxFileCount {
		return nil, nil, validationErrorf("Maximum %d files allowed", o.cfg.MaxFileCount)
	}
	var total int64
	for _, f := range existing {
		total += f.ByteSize
	}
	for _, f := range files {
		total += f.Size
	}
	if total > o.cfg.MaxTotalBytes {
		return nil, nil, validationErrorf("Total file size exceeds %d MB limit", o.cfg.MaxTotalBytes>>20)
	}
	for _, f := range files {
		if !models.IsMediaType(resolveMimeType(f)) {
			return nil, nil, validationErrorf("Only image and video files are supported: %s", baseName(f.Name))
		}
	}

	if err := o.store.EnsureBucket(ctx, o.cfg.UploadBucket); err != nil {
		return nil, nil, err
	}

	uploaded := make([]*models.UploadedFile, len(files))
	failures := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, f := range files {
		g.Go(func() error {
			uploaded[i], failures[i] = o.uploadOne(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchResult[models.UploadedFile]{}
	for i, f := range files {
		if failures[i] != nil {
			o.log.Error("Failed to upload file",
				zap.String("owner", owner),
				zap.String("file", f.Name),
				zap.Error(failures[i]))
			batch.Failed = append(batch.Failed, &FileError{FileName: f.Name, Err: failures[i]})
			continue
		}
		batch.Succeeded = append(batch.Succeeded, *uploaded[i])
	}

	persisted := append(slices.Clone(existing), batch.Succeeded...)
	if len(batch.Succeeded) > 0 {
		if err := o.cache.SaveFiles(ctx, owner, persisted); err != nil {
			return nil, batch, fmt.Errorf("failed to save uploaded files: %w", err)
		}
	}

	return persisted, batch, nil
}

// resolveMimeType falls back to the file extension when the client sent no
// usable type.
func resolveMimeType(f FileInput) string {
	if f.MimeType == "" || f.MimeType == "application/octet-stream" {
		return objectstore.ContentTypeFor(baseName(f.Name))
	}
	return f.MimeType
}

func (o *Orchestrator) uploadOne(ctx context.Context, f FileInput) (*models.UploadedFile, error) {
	name := baseName(f.Name)
	mimeType := resolveMimeType(f)

	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer body.Close()

	// Same-named files in one batch share a millisecond; the id keeps them apart.
	id := newFileID(o.now().UnixMilli())
	objectName := id + "-" + name
	url, err := o.store.Put(ctx, o.cfg.UploadBucket, objectName, body, f.Size, mimeType)
	if err != nil {
		return nil, err
	}

	return &models.UploadedFile{
		ID:         id,
		FileName:   name,
		MimeType:   mimeType,
		ByteSize:   f.Size,
		BucketName: o.cfg.UploadBucket,
		ObjectName: objectName,
		RemoteURL:  url,
		MediaKind:  models.MediaKindFor(mimeType),
	}, nil
}

// ProcessFile runs detection on one uploaded file and stores the annotated
// output in the processed bucket.
func (o *Orchestrator) ProcessFile(ctx context.Context, file models.UploadedFile, categories []string) (*models.ProcessingResult, error) {
	if err := detection.ValidateSelection(categories); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	result, _, err := o.processOne(ctx, file, categories)
	if err != nil {
		return nil, &FileError{FileName: file.FileName, Err: err}
	}
	return result, nil
}

func (o *Orchestrator) processOne(ctx context.Context, file models.UploadedFile, categories []string) (*models.ProcessingResult, []byte, error) {
	obj, err := o.store.Get(ctx, file.BucketName, file.ObjectName)
	if err != nil {
		return nil, nil, err
	}
	original, err := io.ReadAll(obj.Body)
	obj.Body.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s/%s: %v", objectstore.ErrStorageUnavailable, file.BucketName, file.ObjectName, err)
	}

	out, err := o.detector.Detect(ctx, original, file.FileName, file.MediaKind, categories)
	if err != nil {
		if errors.Is(err, detection.ErrUnsupportedVideo) {
			return nil, nil, &ValidationError{Message: err.Error()}
		}
		return nil, nil, err
	}

	if err := o.store.EnsureBucket(ctx, o.cfg.ProcessedBucket); err != nil {
		return nil, nil, err
	}

	processedName := processedObjectName(out.ContentType, file.FileName)
	url, err := o.store.Put(ctx, o.cfg.ProcessedBucket, processedName, bytes.NewReader(out.Data), int64(len(out.Data)), out.ContentType)
	if err != nil {
		return nil, nil, err
	}

	return &models.ProcessingResult{
		FileID:       file.ID,
		OriginalURL:  file.RemoteURL,
		ProcessedURL: url,
		Timestamp:    o.now().UTC(),
		ObjectTypes:  slices.Clone(categories),
		MediaKind:    file.MediaKind,
	}, out.Data, nil
}

// ProcessFiles processes the given uploaded files, or all of them when ids is
// empty, and overwrites each file's stored result. Siblings of a failed file
// keep their results.
func (o *Orchestrator) ProcessFiles(ctx context.Context, owner string, ids []string, categories []string) ([]models.ProcessingResult, *BatchResult[models.ProcessingResult], error) {
	if err := detection.ValidateSelection(categories); err != nil {
		return nil, nil, &ValidationError{Message: err.Error()}
	}

	files, err := o.cache.GetFiles(ctx, owner)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load uploaded files: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, validationErrorf("No uploaded files to process")
	}

	byID := make(map[string]models.UploadedFile, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}
	if len(ids) == 0 {
		for _, f := range files {
			ids = append(ids, f.ID)
		}
	}

	results := make([]*models.ProcessingResult, len(ids))
	outputs := make([][]byte, len(ids))
	failures := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, id := range ids {
		file, ok := byID[id]
		if !ok {
			failures[i] = fmt.Errorf("%w: %s", ErrUnknownFile, id)
			continue
		}
		g.Go(func() error {
			result, output, err := o.processOne(ctx, file, categories)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i], outputs[i] = result, output
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchResult[models.ProcessingResult]{}
	for i, id := range ids {
		if failures[i] != nil {
			name := id
			if f, ok := byID[id]; ok {
				name = f.FileName
			}
			o.log.Error("Failed to process file",
				zap.String("owner", owner),
				zap.String("file", name),
				zap.Strings("categories", categories),
				zap.Error(failures[i]))
			batch.Failed = append(batch.Failed, &FileError{FileName: name, Err: failures[i]})
			continue
		}
		batch.Succeeded = append(batch.Succeeded, *results[i])
	}

	existing, err := o.cache.GetResults(ctx, owner)
	if err != nil {
		return nil, batch, fmt.Errorf("failed to load processing results: %w", err)
	}
	merged := mergeResults(existing, batch.Succeeded, byID)

	if len(batch.Succeeded) > 0 {
		if err := o.cache.SaveResults(ctx, owner, merged); err != nil {
			return nil, batch, fmt.Errorf("failed to save processing results: %w", err)
		}
	}

	// Videos are cached only once their results are stored.
	for i, r := range results {
		if r == nil || r.MediaKind != models.MediaVideo {
			continue
		}
		if err := o.cache.SaveVideo(ctx, owner, r.FileID, outputs[i]); err != nil {
			o.log.Warn("Failed to cache processed video",
				zap.String("file", byID[r.FileID].FileName),
				zap.Error(err))
		}
	}

	return merged, batch, nil
}

// mergeResults overwrites existing results by file id and drops results
// whose file is gone.
func mergeResults(existing, fresh []models.ProcessingResult, files map[string]models.UploadedFile) []models.ProcessingResult {
	replaced := make(map[string]models.ProcessingResult, len(fresh))
	for _, r := range fresh {
		replaced[r.FileID] = r
	}

	merged := make([]models.ProcessingResult, 0, len(existing)+len(fresh))
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		if _, ok := files[r.FileID]; !ok {
			continue
		}
		if nr, ok := replaced[r.FileID]; ok {
			r = nr
		}
		merged = append(merged, r)
		seen[r.FileID] = true
	}
	for _, r := range fresh {
		if !seen[r.FileID] {
			merged = append(merged, r)
			seen[r.FileID] = true
		}
	}
	return merged
}

func newFileID(ms int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", ms, suffix)
}

func processedObjectName(contentType, originalName string) string {
	var ext string
	switch {
	case strings.HasPrefix(contentType, "video/"):
		ext = "mp4"
	case contentType == "image/png":
		ext = "png"
	case strings.HasPrefix(contentType, "image/"):
		ext = "jpg"
	default:
		ext = strings.TrimPrefix(strings.ToLower(path.Ext(originalName)), ".")
		if ext == "" {
			ext = "bin"
		}
	}
	return fmt.Sprintf("processed_%s.%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:8], ext)
}

// baseName strips any client-side directory, including Windows paths.
func baseName(name string) string {
	return path.Base(strings.ReplaceAll(name, `\`, "/"))
}
