package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmfreitas/invoice-extractor/constants"
	"github.com/dmfreitas/invoice-extractor/internal/common"
	"github.com/dmfreitas/invoice-extractor/internal/ingest"
	"github.com/dmfreitas/invoice-extractor/internal/processor"
)

type extractHandler struct {
	proc      *processor.Processor
	uploadDir string
	logger    *slog.Logger
}

// extract accepts a multipart "file" upload or a JSON body naming a local
// path, runs the pipeline, and returns the extracted record.
func (h *extractHandler) extract(c *gin.Context) {
	path, cleanup, err := h.sourcePath(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	out, err := h.proc.Process(c.Request.Context(), path)
	if err != nil {
		extractionsTotal.WithLabelValues("failed").Inc()
		status := http.StatusInternalServerError
		if common.ErrorCode(err) == "FILE_ERROR" {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	outcome := "ok"
	resp := gin.H{
		"invoice":      out.Invoice,
		"needs_review": out.Invoice.NeedsReview,
		"saved":        out.Saved,
	}
	if out.JobID != uuid.Nil {
		resp["job_id"] = out.JobID
	}
	if out.SaveErr != nil {
		resp["save_error"] = out.SaveErr.Error()
		outcome = "unsaved"
	}
	extractionsTotal.WithLabelValues(outcome).Inc()
	c.JSON(http.StatusOK, resp)
}

func (h *extractHandler) sourcePath(c *gin.Context) (string, func(), error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fh, err := c.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("missing file field: %w", err)
		}
		ext := constants.NormalizeExt(filepath.Ext(fh.Filename))
		if !ingest.AllowedExt(ext) {
			return "", nil, fmt.Errorf("unsupported extension %q", ext)
		}
		dst := filepath.Join(h.uploadDir, uuid.New().String()+"."+ext)
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			return "", nil, fmt.Errorf("store upload: %w", err)
		}
		return dst, func() { _ = os.Remove(dst) }, nil
	}

	var body struct {
		Path string `json:"path"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return "", nil, fmt.Errorf(`expected a multipart upload or {"path": ...}: %w`, err)
	}
	if strings.TrimSpace(body.Path) == "" {
		return "", nil, errors.New("path is required")
	}
	return body.Path, nil, nil
}
