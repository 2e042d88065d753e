package models

type DeleteObjectRequest struct {
	BucketName string `json:"bucketName" example:"sitesense-uploads"`
	ObjectName string `json:"objectName" example:"1718000000000-site.jpg"`
}

type ProcessRequest struct {
	FileIDs []string `json:"fileIds"`
	// Categories selected for detection, e.g. ["Car","Person"] or ["Traffic Cars"].
	Categories []string `json:"categories"`
}

type ToggleCategoryRequest struct {
	Selected []string `json:"selected"`
	Category string   `json:"category" example:"Traffic Cars"`
}

type SaveFilesRequest struct {
	Files []UploadedFile `json:"files"`
}

type SaveResultsRequest struct {
	Results []ProcessingResult `json:"results"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
