package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"sitesense-backend/internal/handlers"
	"sitesense-backend/internal/models"
	"sitesense-backend/internal/objectstore"
)

func storageRouter(t *testing.T) (*gin.Engine, *objectstore.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := objectstore.NewMemoryStore("http://localhost:9000")
	h := handlers.NewStorageHandler(store, "sitesense-uploads", zaptest.NewLogger(t))

	router := gin.New()
	router.POST("/api/storage/upload", h.Upload)
	router.GET("/api/storage/download", h.Download)
	router.GET("/api/minio/list", h.List)
	router.DELETE("/api/minio/delete", h.Delete)
	return router, store
}

func putObject(t *testing.T, store *objectstore.MemoryStore, bucket, name string, data []byte) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.EnsureBucket(ctx, bucket))
	_, err := store.Put(ctx, bucket, name, bytes.NewReader(data), int64(len(data)), objectstore.ContentTypeFor(name))
	require.NoError(t, err)
}

func multipartBody(t *testing.T, fields map[string]string, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileName != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUpload_DefaultBucketAndName(t *testing.T) {
	router, store := storageRouter(t)
	body, contentType := multipartBody(t, nil, "site.jpg", "image/jpeg", []byte("jpeg-bytes"))

	req, _ := http.NewRequest("POST", "/api/storage/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.StorageUploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Regexp(t, `^\d+-site\.jpg$`, resp.ObjectName)
	assert.Equal(t, "http://localhost:9000/sitesense-uploads/"+resp.ObjectName, resp.URL)
	assert.Equal(t, int64(10), resp.Size)
	assert.Equal(t, "image/jpeg", resp.Type)

	_, err := store.Get(context.Background(), "sitesense-uploads", resp.ObjectName)
	assert.NoError(t, err)
}

func TestUpload_ExplicitBucketAndName(t *testing.T) {
	router, _ := storageRouter(t)
	body, contentType := multipartBody(t, map[string]string{
		"bucket":     "sitesense-processed",
		"objectName": "processed_deadbeef.mp4",
	}, "out.mp4", "", []byte("mp4"))

	req, _ := http.NewRequest("POST", "/api/storage/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"url":"http://localhost:9000/sitesense-processed/processed_deadbeef.mp4"`)
	assert.Contains(t, w.Body.String(), `"type":"video/mp4"`)
}

func TestUpload_MissingFile(t *testing.T) {
	router, _ := storageRouter(t)
	body, contentType := multipartBody(t, map[string]string{"bucket": "b"}, "", "", nil)

	req, _ := http.NewRequest("POST", "/api/storage/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file is required")
}

func TestDownload_FullBody(t *testing.T) {
	router, store := storageRouter(t)
	putObject(t, store, "sitesense-uploads", "1-site.jpg", []byte("jpeg-bytes"))

	req, _ := http.NewRequest("GET", "/api/storage/download?bucket=sitesense-uploads&object=1-site.jpg", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
	assert.Equal(t, "jpeg-bytes", w.Body.String())
}

func TestDownload_RangeOnVideo(t *testing.T) {
	router, store := storageRouter(t)
	data := bytes.Repeat([]byte("0123456789"), 50)
	putObject(t, store, "sitesense-processed", "processed_abcd1234.mp4", data)

	req, _ := http.NewRequest("GET", "/api/storage/download?bucket=sitesense-processed&object=processed_abcd1234.mp4", nil)
	req.Header.Set("Range", "bytes=0-99")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, fmt.Sprintf("bytes 0-99/%d", len(data)), w.Header().Get("Content-Range"))
	assert.Equal(t, "100", w.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, data[:100], w.Body.Bytes())
}

func TestDownload_UnsatisfiableRange(t *testing.T) {
	router, store := storageRouter(t)
	putObject(t, store, "b", "clip.avi", []byte("short"))

	req, _ := http.NewRequest("GET", "/api/storage/download?bucket=b&object=clip.avi", nil)
	req.Header.Set("Range", "bytes=100-")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, "bytes */5", w.Header().Get("Content-Range"))
}

func TestDownload_RangeIgnoredForImages(t *testing.T) {
	router, store := storageRouter(t)
	putObject(t, store, "b", "photo.png", []byte("png-bytes"))

	req, _ := http.NewRequest("GET", "/api/storage/download?bucket=b&object=photo.png", nil)
	req.Header.Set("Range", "bytes=0-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
}

func TestDownload_MissingParams(t *testing.T) {
	router, _ := storageRouter(t)

	for _, target := range []string{
		"/api/storage/download",
		"/api/storage/download?bucket=b",
		"/api/storage/download?object=o",
	} {
		req, _ := http.NewRequest("GET", target, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestDownload_MissingObject(t *testing.T) {
	router, _ := storageRouter(t)

	req, _ := http.NewRequest("GET", "/api/storage/download?bucket=b&object=nope.jpg", nil)
	w := httptest.NewRecorder()
	assert.NotPanics(t, func() { router.ServeHTTP(w, req) })

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"download failed"}`, w.Body.String())
}

func TestList(t *testing.T) {
	router, store := storageRouter(t)
	putObject(t, store, "b", "1-a.jpg", []byte("a"))
	putObject(t, store, "b", "2-b.jpg", []byte("bb"))

	req, _ := http.NewRequest("GET", "/api/minio/list?bucket=b&prefix=2-", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var objects []objectstore.ObjectInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &objects))
	require.Len(t, objects, 1)
	assert.Equal(t, "2-b.jpg", objects[0].Name)
	assert.Equal(t, int64(2), objects[0].Size)
}

func TestList_MissingBucket(t *testing.T) {
	router, _ := storageRouter(t)

	req, _ := http.NewRequest("GET", "/api/minio/list", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bucket is required")
}

func TestDelete(t *testing.T) {
	router, store := storageRouter(t)
	putObject(t, store, "b", "1-a.jpg", []byte("a"))

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest("DELETE", "/api/minio/delete", strings.NewReader(`{"bucketName":"b","objectName":"1-a.jpg"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	}

	_, err := store.Get(context.Background(), "b", "1-a.jpg")
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestDelete_MissingFields(t *testing.T) {
	router, _ := storageRouter(t)

	cases := map[string]string{
		`{"objectName":"a"}`: "bucketName is required",
		`{"bucketName":"b"}`: "objectName is required",
	}
	for body, want := range cases {
		req, _ := http.NewRequest("DELETE", "/api/minio/delete", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), want)
	}
}
