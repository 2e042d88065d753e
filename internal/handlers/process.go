package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"sitesense-backend/internal/middleware"
	"sitesense-backend/internal/models"
	"sitesense-backend/internal/services"
)

type ProcessHandler struct {
	orchestrator *services.Orchestrator
	log          *zap.Logger
}

func NewProcessHandler(orchestrator *services.Orchestrator, log *zap.Logger) *ProcessHandler {
	return &ProcessHandler{orchestrator: orchestrator, log: log}
}

// Upload godoc
// @Summary     Upload a batch of files
// @Description Uploads up to 10 files (500 MB total, counting files already uploaded) and appends them to the session's uploaded list.
// @Description Failed files are reported per name; successful siblings are kept.
// @Tags        process
// @Accept      multipart/form-data
// @Produce     json
// @Param       files formData file true "Images or videos (multiple allowed)"
// @Success     200 {object} models.UploadFilesResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/process/upload [post]
func (h *ProcessHandler) Upload(c *gin.Context) {
	log := middleware.Logger(c, h.log)
	owner := middleware.UserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "multipart form with files is required")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, "files is required")
		return
	}

	inputs := make([]services.FileInput, len(headers))
	for i, fh := range headers {
		inputs[i] = services.FileInput{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Size:     fh.Size,
			Open: func() (io.ReadSeekCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		}
	}

	files, batch, err := h.orchestrator.UploadFiles(c.Request.Context(), owner, inputs)
	if err != nil {
		respondError(c, log, err, "upload failed", zap.String("owner", owner))
		return
	}
	if len(batch.Succeeded) == 0 {
		respondError(c, log, batch.Err(), "upload failed", zap.String("owner", owner))
		return
	}

	c.JSON(http.StatusOK, models.UploadFilesResponse{
		Files:    files,
		Uploaded: batch.Succeeded,
		Failed:   itemErrors(batch.Failed, "upload failed"),
	})
}

// Run godoc
// @Summary     Run detection
// @Description Sends the given uploaded files (all of them when fileIds is empty) to detection with the selected categories.
// @Description "Traffic Cars" must be selected on its own and uses the traffic model.
// @Tags        process
// @Accept      json
// @Produce     json
// @Param       request body models.ProcessRequest true "Files and categories"
// @Success     200 {object} models.ProcessFilesResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/process/run [post]
func (h *ProcessHandler) Run(c *gin.Context) {
	log := middleware.Logger(c, h.log)
	owner := middleware.UserID(c)

	var req models.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	results, batch, err := h.orchestrator.ProcessFiles(c.Request.Context(), owner, req.FileIDs, req.Categories)
	if err != nil {
		respondError(c, log, err, "processing failed", zap.String("owner", owner))
		return
	}
	if len(batch.Succeeded) == 0 {
		respondError(c, log, batch.Err(), "processing failed", zap.String("owner", owner))
		return
	}

	c.JSON(http.StatusOK, models.ProcessFilesResponse{
		Results:   results,
		Processed: batch.Succeeded,
		Failed:    itemErrors(batch.Failed, "processing failed"),
	})
}
