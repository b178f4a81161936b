package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmfreitas/invoice-extractor/internal/export"
)

type exportHandler struct {
	svc    *export.Service
	logger *slog.Logger
}

func (h *exportHandler) xlsx(c *gin.Context) {
	h.serve(c, "invoices.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		func(from, to *time.Time) ([]byte, error) {
			return h.svc.ExportXLSX(c.Request.Context(), from, to)
		})
}

func (h *exportHandler) csv(c *gin.Context) {
	h.serve(c, "invoices.csv", "text/csv",
		func(from, to *time.Time) ([]byte, error) {
			return h.svc.ExportCSV(c.Request.Context(), from, to)
		})
}

func (h *exportHandler) serve(c *gin.Context, filename, contentType string, produce func(from, to *time.Time) ([]byte, error)) {
	if h.svc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return
	}

	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := produce(from, to)
	if err != nil {
		h.logger.Error("export failed", "file", filename, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, b)
}
