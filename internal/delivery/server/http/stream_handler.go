package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"blobvault/internal/app/transfer"
	"blobvault/internal/domain/blob"
	errs "blobvault/internal/shared/errors"
	"blobvault/internal/shared/logging"
)

const (
	uploadField      = "file"
	fileIDParam      = "fileId"
	deletedMessage   = "Large Object deleted successfully"
	missingIDMessage = "fileId is required"
)

// TransferService is the coordinator surface used by the stream endpoints.
type TransferService interface {
	Ingest(ctx context.Context, fileName string, fileSize int64, payload []byte) (transfer.Ingested, error)
	Retrieve(ctx context.Context, fileID string) (transfer.File, error)
	Purge(ctx context.Context, fileID string) error
	Describe(ctx context.Context, fileID string) (blob.Entry, error)
	Ping(ctx context.Context) error
}

// StreamHandler serves the /stream endpoints.
type StreamHandler struct {
	transfer       TransferService
	logger         logging.Logger
	exposeInternal bool
	maxUploadBytes int64
}

// NewStreamHandler builds a StreamHandler.
func NewStreamHandler(svc TransferService, logger logging.Logger, exposeInternal bool, maxUploadBytes int64) *StreamHandler {
	return &StreamHandler{
		transfer:       svc,
		logger:         logging.OrNop(logger),
		exposeInternal: exposeInternal,
		maxUploadBytes: maxUploadBytes,
	}
}

type uploadResponse struct {
	Handle uint32 `json:"handle"`
	FileID string `json:"fileId"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type describeResponse struct {
	FileID    string `json:"fileId"`
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
	Handle    uint32 `json:"handle"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// HandleUpload ingests the multipart field "file".
func (h *StreamHandler) HandleUpload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	header, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, errs.NewBadRequestError(err, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)))
			return
		}
		h.writeError(c, errs.NewBadRequestError(err, transfer.NoFileMessage))
		return
	}

	file, err := header.Open()
	if err != nil {
		h.writeError(c, errs.NewStoreError(err, "open uploaded file"))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		h.writeError(c, errs.NewStoreError(err, "read uploaded file"))
		return
	}

	ingested, err := h.transfer.Ingest(c.Request.Context(), header.Filename, header.Size, payload)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadResponse{Handle: ingested.Handle.OID, FileID: ingested.FileID})
}

// HandleDownload streams the stored bytes back as an attachment.
func (h *StreamHandler) HandleDownload(c *gin.Context) {
	fileID, ok := h.fileID(c)
	if !ok {
		return
	}
	file, err := h.transfer.Retrieve(c.Request.Context(), fileID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", contentDisposition(file.FileName))
	c.Data(http.StatusOK, "application/octet-stream", file.Data)
}

// HandleDelete purges the blob and its index row.
func (h *StreamHandler) HandleDelete(c *gin.Context) {
	fileID, ok := h.fileID(c)
	if !ok {
		return
	}
	if err := h.transfer.Purge(c.Request.Context(), fileID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: deletedMessage})
}

// HandleDescribe returns the index entry without the blob bytes.
func (h *StreamHandler) HandleDescribe(c *gin.Context) {
	fileID, ok := h.fileID(c)
	if !ok {
		return
	}
	entry, err := h.transfer.Describe(c.Request.Context(), fileID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := describeResponse{
		FileID:   entry.FileID,
		FileName: entry.FileName,
		FileSize: entry.FileSize,
		Handle:   entry.BlobOID,
	}
	if !entry.CreatedAt.IsZero() {
		resp.CreatedAt = entry.CreatedAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth pings the store.
func (h *StreamHandler) HandleHealth(c *gin.Context) {
	if err := h.transfer.Ping(c.Request.Context()); err != nil {
		logging.FromContext(c.Request.Context(), h.logger).Warn("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *StreamHandler) fileID(c *gin.Context) (string, bool) {
	fileID := strings.TrimSpace(c.Query(fileIDParam))
	if fileID == "" {
		h.writeError(c, errs.NewBadRequestError(nil, missingIDMessage))
		return "", false
	}
	return fileID, true
}

func (h *StreamHandler) writeError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context(), h.logger).Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: errs.PublicMessage(err, h.exposeInternal)})
}

func contentDisposition(fileName string) string {
	if fileName == "" {
		return "attachment"
	}
	if value := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); value != "" {
		return value
	}
	return "attachment"
}
