package models

import (
	"strings"
	"time"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaKindFor classifies a MIME type. Anything not video/* is an image.
func MediaKindFor(mimeType string) MediaKind {
	if strings.HasPrefix(mimeType, "video/") {
		return MediaVideo
	}
	return MediaImage
}

// IsMediaType reports whether mimeType is an image or video type.
func IsMediaType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "video/")
}

// UploadedFile records one original stored in the upload bucket. Immutable
// once created.
type UploadedFile struct {
	ID         string    `json:"id" example:"1718000000000-k3j9x2"`
	FileName   string    `json:"fileName" example:"site.jpg"`
	MimeType   string    `json:"mimeType" example:"image/jpeg"`
	ByteSize   int64     `json:"byteSize" example:"2097152"`
	BucketName string    `json:"bucketName" example:"sitesense-uploads"`
	ObjectName string    `json:"objectName" example:"1718000000000-site.jpg"`
	RemoteURL  string    `json:"remoteUrl"`
	MediaKind  MediaKind `json:"mediaKind" example:"image"`
}

// ProcessingResult correlates an UploadedFile with its detection output.
type ProcessingResult struct {
	FileID       string    `json:"fileId"`
	OriginalURL  string    `json:"originalUrl"`
	ProcessedURL string    `json:"processedUrl"`
	Timestamp    time.Time `json:"timestamp"`
	ObjectTypes  []string  `json:"objectTypes"`
	MediaKind    MediaKind `json:"mediaKind"`
}
