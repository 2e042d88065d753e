package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"sitesense-backend/internal/middleware"
	"sitesense-backend/internal/models"
	"sitesense-backend/internal/objectstore"
)

// StorageHandler proxies browser requests to the object store.
type StorageHandler struct {
	store         objectstore.Store
	defaultBucket string
	log           *zap.Logger
	now           func() time.Time
}

func NewStorageHandler(store objectstore.Store, defaultBucket string, log *zap.Logger) *StorageHandler {
	return &StorageHandler{
		store:         store,
		defaultBucket: defaultBucket,
		log:           log,
		now:           time.Now,
	}
}

// Upload godoc
// @Summary     Upload a file to object storage
// @Description Stores one file. The object name defaults to <epoch-ms>-<original filename>.
// @Tags        storage
// @Accept      multipart/form-data
// @Produce     json
// @Param       file formData file true "File to store"
// @Param       bucket formData string false "Target bucket (default sitesense-uploads)"
// @Param       objectName formData string false "Explicit object name"
// @Success     200 {object} models.StorageUploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/storage/upload [post]
func (h *StorageHandler) Upload(c *gin.Context) {
	log := middleware.Logger(c, h.log)

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}

	bucket := c.PostForm("bucket")
	if bucket == "" {
		bucket = h.defaultBucket
	}
	objectName := c.PostForm("objectName")
	if objectName == "" {
		objectName = fmt.Sprintf("%d-%s", h.now().UnixMilli(), path.Base(strings.ReplaceAll(header.Filename, `\`, "/")))
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = objectstore.ContentTypeFor(objectName)
	}

	file, err := header.Open()
	if err != nil {
		badRequest(c, "file could not be read")
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	if err := h.store.EnsureBucket(ctx, bucket); err != nil {
		log.Error("Failed to ensure bucket", zap.String("bucket", bucket), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "upload failed"})
		return
	}

	url, err := h.store.Put(ctx, bucket, objectName, file, header.Size, contentType)
	if err != nil {
		log.Error("Failed to upload object",
			zap.String("bucket", bucket),
			zap.String("object", objectName),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "upload failed"})
		return
	}

	c.JSON(http.StatusOK, models.StorageUploadResponse{
		Success:    true,
		URL:        url,
		ObjectName: objectName,
		Size:       header.Size,
		Type:       contentType,
	})
}

// Download godoc
// @Summary     Download an object
// @Description Streams an object with a content type inferred from its extension. Audio and video honour Range requests.
// @Tags        storage
// @Produce     octet-stream
// @Param       bucket query string true "Bucket"
// @Param       object query string true "Object name"
// @Param       Range header string false "Byte range, e.g. bytes=0-99"
// @Success     200 {file} binary
// @Success     206 {file} binary
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     416 {string} string
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/storage/download [get]
func (h *StorageHandler) Download(c *gin.Context) {
	log := middleware.Logger(c, h.log)

	bucket := c.Query("bucket")
	if bucket == "" {
		badRequest(c, "bucket is required")
		return
	}
	objectName := c.Query("object")
	if objectName == "" {
		badRequest(c, "object is required")
		return
	}

	obj, err := h.store.Get(c.Request.Context(), bucket, objectName)
	if err != nil {
		log.Error("Failed to download object",
			zap.String("bucket", bucket),
			zap.String("object", objectName),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "download failed"})
		return
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		log.Error("Failed to read object",
			zap.String("bucket", bucket),
			zap.String("object", objectName),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "download failed"})
		return
	}

	serveBytes(c, data, objectstore.ContentTypeFor(objectName))
}

// List godoc
// @Summary     List objects in a bucket
// @Tags        storage
// @Produce     json
// @Param       bucket query string true "Bucket"
// @Param       prefix query string false "Name prefix"
// @Success     200 {array} objectstore.ObjectInfo
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/minio/list [get]
func (h *StorageHandler) List(c *gin.Context) {
	bucket := c.Query("bucket")
	if bucket == "" {
		badRequest(c, "bucket is required")
		return
	}
	prefix := c.Query("prefix")

	objects, err := h.store.List(c.Request.Context(), bucket, prefix)
	if err != nil {
		middleware.Logger(c, h.log).Error("Failed to list objects",
			zap.String("bucket", bucket),
			zap.String("prefix", prefix),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "list failed"})
		return
	}

	c.JSON(http.StatusOK, objects)
}

// Delete godoc
// @Summary     Delete an object
// @Description Deleting an object that does not exist succeeds.
// @Tags        storage
// @Accept      json
// @Produce     json
// @Param       request body models.DeleteObjectRequest true "Object to delete"
// @Success     200 {object} models.SuccessResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/minio/delete [delete]
func (h *StorageHandler) Delete(c *gin.Context) {
	var req models.DeleteObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if req.BucketName == "" {
		badRequest(c, "bucketName is required")
		return
	}
	if req.ObjectName == "" {
		badRequest(c, "objectName is required")
		return
	}

	if err := h.store.Delete(c.Request.Context(), req.BucketName, req.ObjectName); err != nil {
		middleware.Logger(c, h.log).Error("Failed to delete object",
			zap.String("bucket", req.BucketName),
			zap.String("object", req.ObjectName),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "delete failed"})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}
