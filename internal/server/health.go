package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dmfreitas/invoice-extractor/internal/repository"
)

type healthHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func (h *healthHandler) healthz(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.db != nil {
		if err := repository.HealthCheck(c.Request.Context(), h.db, 5*time.Second, h.logger); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		resp["database"] = "ok"
	}
	c.JSON(http.StatusOK, resp)
}
