package models

import "time"

type StorageUploadResponse struct {
	Success    bool   `json:"success"`
	URL        string `json:"url"`
	ObjectName string `json:"objectName"`
	Size       int64  `json:"size"`
	Type       string `json:"type"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// ItemError reports one failed item of a batch, tagged by file name.
type ItemError struct {
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

type UploadFilesResponse struct {
	Files    []UploadedFile `json:"files"`
	Uploaded []UploadedFile `json:"uploaded"`
	Failed   []ItemError    `json:"failed,omitempty"`
}

type ProcessFilesResponse struct {
	Results   []ProcessingResult `json:"results"`
	Processed []ProcessingResult `json:"processed"`
	Failed    []ItemError        `json:"failed,omitempty"`
}

type FilesResponse struct {
	Files []UploadedFile `json:"files"`
}

type ResultsResponse struct {
	Results []ProcessingResult `json:"results"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Exclusive  string   `json:"exclusive" example:"Traffic Cars"`
}

type ToggleCategoryResponse struct {
	Selected []string `json:"selected"`
}

// ResultView is what the results page renders: a compare slider for images,
// a player with a download link for videos.
type ResultView struct {
	FileID       string    `json:"fileId"`
	FileName     string    `json:"fileName"`
	MediaKind    MediaKind `json:"mediaKind"`
	Viewer       string    `json:"viewer" example:"compare-slider"`
	OriginalURL  string    `json:"originalUrl"`
	ProcessedURL string    `json:"processedUrl"`
	DownloadURL  string    `json:"downloadUrl,omitempty"`
	ObjectTypes  []string  `json:"objectTypes"`
	Timestamp    time.Time `json:"timestamp"`
}

type ResultsViewResponse struct {
	Views []ResultView `json:"views"`
}

type RedirectResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect" example:"/upload"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
