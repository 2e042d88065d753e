// Package detection talks to the external object-detection services.
package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"sitesense-backend/internal/models"
)

var (
	ErrUnsupportedVideo = errors.New("upload an MP4, MOV, or AVI video")
	ErrDetectionFailed  = errors.New("detection service failed")
)

var videoExtensions = map[string]bool{"mp4": true, "mov": true, "avi": true}

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// Output is the annotated media returned by a detection service.
type Output struct {
	Data        []byte
	ContentType string
	Route       string
}

type Client struct {
	routes     []Route
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(routes []Route, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		routes: routes,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Resolve returns the route a selection would be sent to.
func (c *Client) Resolve(categories []string) (Route, error) {
	return resolve(c.routes, categories)
}

// Detect posts payload as multipart field "file" to the route selected by
// categories and returns the response body.
func (c *Client) Detect(ctx context.Context, payload []byte, fileName string, kind models.MediaKind, categories []string) (*Output, error) {
	if err := ValidateSelection(categories); err != nil {
		return nil, err
	}
	if kind == models.MediaVideo {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
		if !videoExtensions[ext] {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedVideo, fileName)
		}
	}

	route, err := c.Resolve(categories)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", path.Base(fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := route.URL(kind, categories)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDetectionFailed, route.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read detection response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := data
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: %s returned status %d, body: %s", ErrDetectionFailed, route.Name, resp.StatusCode, string(excerpt))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	c.log.Info("Detection completed",
		zap.String("route", route.Name),
		zap.String("file", fileName),
		zap.String("media_kind", string(kind)),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)))

	return &Output{Data: data, ContentType: contentType, Route: route.Name}, nil
}
