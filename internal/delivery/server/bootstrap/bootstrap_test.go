package bootstrap

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobvault/internal/shared/config"
	"blobvault/internal/shared/logging"
)

func memoryConfig() config.Config {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory
	cfg.Transfer.ChunkSize = 8
	return cfg
}

func TestBuildContainerWithMemoryStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	container, err := BuildContainer(ctx, memoryConfig(), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	require.NotNil(t, container.Coordinator)
	require.NotNil(t, container.Metrics)
	require.NotNil(t, container.HTTPMetrics)

	srv := httptest.NewServer(NewHTTPServer(container, container.Config.Server).Handler)
	defer srv.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "hello.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello across several chunks"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(srv.URL+"/stream", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "blobvault_transfer_operation_duration_seconds")
	assert.Contains(t, string(metrics), "go_goroutines")
	assert.Regexp(t, `blobvault[._]http[._]requests`, string(metrics))
}

func TestBuildContainerRejectsInvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Transfer.ChunkSize = 0

	_, err := BuildContainer(context.Background(), cfg, logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size")
}

func TestBuildContainerWithoutMetrics(t *testing.T) {
	cfg := memoryConfig()
	cfg.Metrics.Enabled = false

	container, err := BuildContainer(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	defer container.Close(context.Background()) //nolint:errcheck
	assert.Nil(t, container.Metrics)
}

func TestMigrateRequiresPostgres(t *testing.T) {
	err := Migrate(context.Background(), memoryConfig(), logging.Nop())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "postgres"))
}

func TestServeUntilSignalStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.NotFoundHandler(),
	}

	done := make(chan error, 1)
	go func() { done <- serveUntilSignal(ctx, server, time.Second, logging.Nop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}
