package detection_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"sitesense-backend/internal/config"
	"sitesense-backend/internal/detection"
	"sitesense-backend/internal/models"
)

type recordedCall struct {
	path     string
	fileName string
	payload  string
}

func detectionServer(t *testing.T, status int, contentType string) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var mu sync.Mutex
	calls := []recordedCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)

		mu.Lock()
		calls = append(calls, recordedCall{path: r.URL.EscapedPath(), fileName: header.Filename, payload: string(data)})
		mu.Unlock()

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte("annotated:" + string(data)))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestDetect_DefaultRouteEmbedsCategories(t *testing.T) {
	general, generalCalls := detectionServer(t, http.StatusOK, "image/jpeg")
	traffic, trafficCalls := detectionServer(t, http.StatusOK, "image/jpeg")

	client := detection.NewClient(detection.DefaultRoutes(config.DetectionConfig{
		BaseURL:        general.URL,
		TrafficBaseURL: traffic.URL,
	}), time.Minute, zaptest.NewLogger(t))

	out, err := client.Detect(context.Background(), []byte("jpeg"), "site.jpg", models.MediaImage, []string{"Car", "Person"})
	require.NoError(t, err)

	assert.Equal(t, "annotated:jpeg", string(out.Data))
	assert.Equal(t, "image/jpeg", out.ContentType)
	assert.Equal(t, "default", out.Route)
	require.Len(t, *generalCalls, 1)
	assert.Equal(t, "/detect/image/Car,Person", (*generalCalls)[0].path)
	assert.Equal(t, "site.jpg", (*generalCalls)[0].fileName)
	assert.Empty(t, *trafficCalls)
}

func TestDetect_TrafficCarsUsesTrafficHost(t *testing.T) {
	general, generalCalls := detectionServer(t, http.StatusOK, "video/mp4")
	traffic, trafficCalls := detectionServer(t, http.StatusOK, "video/mp4")

	client := detection.NewClient(detection.DefaultRoutes(config.DetectionConfig{
		BaseURL:        general.URL,
		TrafficBaseURL: traffic.URL,
	}), time.Minute, zaptest.NewLogger(t))

	out, err := client.Detect(context.Background(), []byte("mp4"), "road.mp4", models.MediaVideo, []string{detection.TrafficCars})
	require.NoError(t, err)

	assert.Equal(t, "traffic", out.Route)
	require.Len(t, *trafficCalls, 1)
	assert.Equal(t, "/detect/video", (*trafficCalls)[0].path)
	assert.Empty(t, *generalCalls)
}

func TestDetect_RejectsUnsupportedVideo(t *testing.T) {
	general, calls := detectionServer(t, http.StatusOK, "video/mp4")
	client := detection.NewClient(detection.DefaultRoutes(config.DetectionConfig{BaseURL: general.URL}), time.Minute, zaptest.NewLogger(t))

	_, err := client.Detect(context.Background(), []byte("webm"), "clip.webm", models.MediaVideo, []string{"Car"})
	assert.ErrorIs(t, err, detection.ErrUnsupportedVideo)
	assert.Empty(t, *calls)
}

func TestDetect_NonSuccessStatus(t *testing.T) {
	general, _ := detectionServer(t, http.StatusBadRequest, "application/json")
	client := detection.NewClient(detection.DefaultRoutes(config.DetectionConfig{BaseURL: general.URL}), time.Minute, zaptest.NewLogger(t))

	_, err := client.Detect(context.Background(), []byte("jpeg"), "site.jpg", models.MediaImage, []string{"Car"})
	require.Error(t, err)
	assert.ErrorIs(t, err, detection.ErrDetectionFailed)
	assert.Contains(t, err.Error(), "400")
}

func TestDetect_InvalidSelection(t *testing.T) {
	client := detection.NewClient(detection.DefaultRoutes(config.DetectionConfig{BaseURL: "http://unused"}), time.Minute, zaptest.NewLogger(t))

	_, err := client.Detect(context.Background(), []byte("jpeg"), "site.jpg", models.MediaImage, nil)
	assert.ErrorIs(t, err, detection.ErrNoCategories)
}

func TestRoute_URL(t *testing.T) {
	r := detection.Route{BaseURL: "http://localhost:8000/", Shape: detection.ShapeCategoryPath}
	assert.Equal(t, "http://localhost:8000/detect/video/Car,Stop%20Sign", r.URL(models.MediaVideo, []string{"Car", "Stop Sign"}))

	r.Shape = detection.ShapeKindOnly
	assert.Equal(t, "http://localhost:8000/detect/image", r.URL(models.MediaImage, []string{"Car"}))
}

func TestResolve_WithoutTrafficHostFallsBackToDefault(t *testing.T) {
	client := detection.NewClient(detection.DefaultRoutes(config.DetectionConfig{BaseURL: "http://general"}), time.Minute, zaptest.NewLogger(t))

	route, err := client.Resolve([]string{detection.TrafficCars})
	require.NoError(t, err)
	assert.Equal(t, "default", route.Name)
}
