package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	v1 "github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/controller/http/v1"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/cache"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/sqlite"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/infra/video"
	"github.com/dineshmadhavan148-oss/VideoFrameExtractor/internal/usecase"
)

// writeMJPEGFixture writes a concatenated-JPEG stream: each frame is a JPEG
// start-of-image marker, a marker-free payload, and an end-of-image marker.
func writeMJPEGFixture(t *testing.T, frames int) string {
	t.Helper()
	var stream bytes.Buffer
	for i := 0; i < frames; i++ {
		stream.Write([]byte{0xff, 0xd8})
		stream.WriteString("synthetic frame payload")
		stream.Write([]byte{0xff, 0xd9})
	}
	path := filepath.Join(t.TempDir(), "fixture.mjpeg")
	require.NoError(t, os.WriteFile(path, stream.Bytes(), 0o644))
	return path
}

func newService(t *testing.T) (*httptest.Server, *usecase.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	frameCache := cache.New(context.Background(), cache.Config{DefaultTTL: time.Hour}, log)
	sampler := video.NewSampler(log, video.NewMJPEGBackend())

	orchestrator, err := usecase.NewOrchestrator(store, frameCache, sampler, log, usecase.OrchestratorConfig{
		FramesBasePath:    t.TempDir(),
		MaxConcurrentJobs: 2,
	})
	require.NoError(t, err)

	dashboard := usecase.NewDashboardService(store, frameCache, log)
	srv := httptest.NewServer(v1.NewRouter(v1.NewHandler(orchestrator, dashboard, frameCache.Backend())))
	t.Cleanup(srv.Close)
	return srv, orchestrator
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestEndToEndExtraction(t *testing.T) {
	srv, orchestrator := newService(t)

	// 65 frames with no recoverable frame rate: the sampler falls back to
	// its default stride of 30, keeping frames 0, 30 and 60.
	source := writeMJPEGFixture(t, 65)

	resp, submitted := postJSON(t, srv.URL+"/video-job", map[string]any{
		"video_source": source,
		"interval":     5.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	jobID, _ := submitted["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "pending", submitted["status"])

	var job map[string]any
	require.Eventually(t, func() bool {
		resp, decoded := getJSON(t, srv.URL+"/job-status/"+jobID)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		job = decoded
		return decoded["status"] == "completed"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, float64(3), job["total_frames"])
	assert.Equal(t, float64(3), job["processed_frames"])

	resp, listing := getJSON(t, srv.URL+"/frames/"+jobID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), listing["count"])

	frames, ok := listing["frames"].([]any)
	require.True(t, ok)
	require.Len(t, frames, 3)
	for i, want := range []float64{0, 30, 60} {
		frame := frames[i].(map[string]any)
		assert.Equal(t, want, frame["timestamp"])
		framePath, _ := frame["frame_path"].(string)
		assert.FileExists(t, framePath)
		assert.NotEmpty(t, frame["checksum"])
	}

	resp, recent := getJSON(t, srv.URL+"/dashboard/recent-frames?job_id="+jobID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), recent["count"])

	require.NoError(t, orchestrator.Wait(context.Background()))
}

func TestEndToEndFailure(t *testing.T) {
	srv, orchestrator := newService(t)

	resp, submitted := postJSON(t, srv.URL+"/video-job", map[string]any{
		"video_source": filepath.Join(t.TempDir(), "does-not-exist.mp4"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "submission succeeds even for a bad source")
	jobID, _ := submitted["job_id"].(string)
	require.NotEmpty(t, jobID)

	var job map[string]any
	require.Eventually(t, func() bool {
		resp, decoded := getJSON(t, srv.URL+"/job-status/"+jobID)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		job = decoded
		return decoded["status"] == "failed"
	}, 5*time.Second, 20*time.Millisecond)
	assert.NotEmpty(t, job["error_message"])

	require.NoError(t, orchestrator.Wait(context.Background()))
}

func TestEndToEndCancel(t *testing.T) {
	srv, orchestrator := newService(t)
	source := writeMJPEGFixture(t, 65)

	_, submitted := postJSON(t, srv.URL+"/video-job", map[string]any{"video_source": source})
	jobID, _ := submitted["job_id"].(string)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		resp, decoded := getJSON(t, srv.URL+"/job-status/"+jobID)
		return resp.StatusCode == http.StatusOK && decoded["status"] == "completed"
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, orchestrator.Wait(context.Background()))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/job/"+jobID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = getJSON(t, srv.URL+"/job-status/"+jobID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
