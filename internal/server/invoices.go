package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmfreitas/invoice-extractor/internal/common"
	"github.com/dmfreitas/invoice-extractor/internal/repository"
)

type invoiceHandler struct {
	invoices repository.InvoiceRepository
	jobs     repository.ExtractJobRepository
	logger   *slog.Logger
}

func (h *invoiceHandler) list(c *gin.Context) {
	if h.invoices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return
	}

	filter, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invs, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list invoices failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list invoices failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invs, "count": len(invs)})
}

func (h *invoiceHandler) get(c *gin.Context) {
	if h.invoices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return
	}

	inv, err := h.invoices.GetByID(c.Request.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		return
	}
	if err != nil {
		h.logger.Error("get invoice failed", "invoice_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get invoice failed"})
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *invoiceHandler) listJobs(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not configured"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	jobs, err := h.jobs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list jobs failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list jobs failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

func filterFromQuery(c *gin.Context) (repository.ListFilter, error) {
	var filter repository.ListFilter
	filter.Vendor = strings.TrimSpace(c.Query("vendor"))

	var err error
	if filter.FromDate, err = parseDateParam(c.Query("from")); err != nil {
		return filter, err
	}
	if filter.ToDate, err = parseDateParam(c.Query("to")); err != nil {
		return filter, err
	}

	if v := c.Query("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n <= 0 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}

func parseDateParam(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, errors.New("dates must be YYYY-MM-DD")
	}
	return &t, nil
}
