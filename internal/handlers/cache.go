package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"sitesense-backend/internal/metacache"
	"sitesense-backend/internal/middleware"
	"sitesense-backend/internal/models"
)

const (
	viewerCompareSlider = "compare-slider"
	viewerVideoPlayer   = "video-player"
)

type CacheHandler struct {
	cache *metacache.Cache
	log   *zap.Logger
}

func NewCacheHandler(cache *metacache.Cache, log *zap.Logger) *CacheHandler {
	return &CacheHandler{cache: cache, log: log}
}

// GetFiles godoc
// @Summary     Uploaded files of the session
// @Tags        cache
// @Produce     json
// @Success     200 {object} models.FilesResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/cache/files [get]
func (h *CacheHandler) GetFiles(c *gin.Context) {
	files, err := h.cache.GetFiles(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, middleware.Logger(c, h.log), err, "failed to load files")
		return
	}
	c.JSON(http.StatusOK, models.FilesResponse{Files: files})
}

// PutFiles godoc
// @Summary     Replace the uploaded files list
// @Description Results of files missing from the new list are dropped.
// @Tags        cache
// @Accept      json
// @Produce     json
// @Param       request body models.SaveFilesRequest true "Complete list"
// @Success     200 {object} models.FilesResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/cache/files [put]
func (h *CacheHandler) PutFiles(c *gin.Context) {
	var req models.SaveFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if req.Files == nil {
		req.Files = []models.UploadedFile{}
	}

	if err := h.cache.SaveFiles(c.Request.Context(), middleware.UserID(c), req.Files); err != nil {
		respondError(c, middleware.Logger(c, h.log), err, "failed to save files")
		return
	}
	c.JSON(http.StatusOK, models.FilesResponse{Files: req.Files})
}

// GetResults godoc
// @Summary     Processing results of the session
// @Tags        cache
// @Produce     json
// @Success     200 {object} models.ResultsResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/cache/results [get]
func (h *CacheHandler) GetResults(c *gin.Context) {
	results, err := h.cache.GetResults(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, middleware.Logger(c, h.log), err, "failed to load results")
		return
	}
	c.JSON(http.StatusOK, models.ResultsResponse{Results: results})
}

// PutResults godoc
// @Summary     Replace the processing results list
// @Description Every result must reference an uploaded file of the session.
// @Tags        cache
// @Accept      json
// @Produce     json
// @Param       request body models.SaveResultsRequest true "Complete list"
// @Success     200 {object} models.ResultsResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/cache/results [put]
func (h *CacheHandler) PutResults(c *gin.Context) {
	var req models.SaveResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if req.Results == nil {
		req.Results = []models.ProcessingResult{}
	}

	err := h.cache.SaveResults(c.Request.Context(), middleware.UserID(c), req.Results)
	if errors.Is(err, metacache.ErrOrphanResult) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation failed", Message: err.Error()})
		return
	}
	if err != nil {
		respondError(c, middleware.Logger(c, h.log), err, "failed to save results")
		return
	}
	c.JSON(http.StatusOK, models.ResultsResponse{Results: req.Results})
}

// Clear godoc
// @Summary     Clear the session's files, results and cached videos
// @Tags        cache
// @Produce     json
// @Success     200 {object} models.SuccessResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/cache [delete]
func (h *CacheHandler) Clear(c *gin.Context) {
	if err := h.cache.ClearAll(c.Request.Context(), middleware.UserID(c)); err != nil {
		respondError(c, middleware.Logger(c, h.log), err, "failed to clear cache")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// Video godoc
// @Summary     Cached processed video
// @Tags        cache
// @Produce     video/mp4
// @Param       fileId path string true "Uploaded file id"
// @Param       Range header string false "Byte range"
// @Success     200 {file} binary
// @Success     206 {file} binary
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/cache/video/{fileId} [get]
func (h *CacheHandler) Video(c *gin.Context) {
	fileID := c.Param("fileId")
	data, ok, err := h.cache.GetVideo(c.Request.Context(), middleware.UserID(c), fileID)
	if err != nil {
		respondError(c, middleware.Logger(c, h.log), err, "failed to load video", zap.String("file_id", fileID))
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "video not cached"})
		return
	}
	serveBytes(c, data, "video/mp4")
}

// ResultsView godoc
// @Summary     Results page view model
// @Description Images render in a compare slider, videos in a player with a download link.
// @Description A result without its uploaded file answers 409 and points back to the upload page.
// @Tags        results
// @Produce     json
// @Success     200 {object} models.ResultsViewResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     409 {object} models.RedirectResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/results/view [get]
func (h *CacheHandler) ResultsView(c *gin.Context) {
	results, files, err := h.cache.ValidResults(c.Request.Context(), middleware.UserID(c))
	if errors.Is(err, metacache.ErrOrphanResult) {
		c.JSON(http.StatusConflict, models.RedirectResponse{Error: "results do not match uploaded files", Redirect: "/upload"})
		return
	}
	if err != nil {
		respondError(c, middleware.Logger(c, h.log), err, "failed to load results")
		return
	}

	byID := make(map[string]models.UploadedFile, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}

	views := make([]models.ResultView, 0, len(results))
	for _, r := range results {
		f := byID[r.FileID]
		view := models.ResultView{
			FileID:       r.FileID,
			FileName:     f.FileName,
			MediaKind:    r.MediaKind,
			Viewer:       viewerCompareSlider,
			OriginalURL:  r.OriginalURL,
			ProcessedURL: r.ProcessedURL,
			ObjectTypes:  r.ObjectTypes,
			Timestamp:    r.Timestamp,
		}
		if r.MediaKind == models.MediaVideo {
			view.Viewer = viewerVideoPlayer
			view.DownloadURL = r.ProcessedURL
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, models.ResultsViewResponse{Views: views})
}
