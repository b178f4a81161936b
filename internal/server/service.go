package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/dmfreitas/invoice-extractor/internal/export"
	"github.com/dmfreitas/invoice-extractor/internal/processor"
	"github.com/dmfreitas/invoice-extractor/internal/repository"
)

// Config for the HTTP API.
type Config struct {
	Addr           string
	MaxUploadMB    int
	UploadDir      string
	MetricsEnabled bool
}

type Server struct {
	cfg    Config
	engine *gin.Engine
	logger *slog.Logger
	http   *http.Server
}

// New wires routes and middleware. Invoices, jobs, exporter, and db may be
// nil when persistence is disabled; the affected routes then answer 503.
func New(
	cfg Config,
	logger *slog.Logger,
	proc *processor.Processor,
	invoices repository.InvoiceRepository,
	jobs repository.ExtractJobRepository,
	exporter *export.Service,
	db *gorm.DB,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 25
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20
	engine.Use(gin.Recovery(), requestID(), requestLogger(logger))
	if cfg.MetricsEnabled {
		engine.Use(metricsMiddleware())
	}

	eh := &extractHandler{proc: proc, uploadDir: cfg.UploadDir, logger: logger}
	ih := &invoiceHandler{invoices: invoices, jobs: jobs, logger: logger}
	xh := &exportHandler{svc: exporter, logger: logger}
	hh := &healthHandler{db: db, logger: logger}

	engine.GET("/healthz", hh.healthz)
	if cfg.MetricsEnabled {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := engine.Group("/v1")
	{
		v1.POST("/extract", eh.extract)
		v1.GET("/invoices", ih.list)
		v1.GET("/invoices/:id", ih.get)
		v1.GET("/invoices/export.xlsx", xh.xlsx)
		v1.GET("/invoices/export.csv", xh.csv)
		v1.GET("/jobs", ih.listJobs)
	}

	return &Server{cfg: cfg, engine: engine, logger: logger}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{Addr: s.cfg.Addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(shCtx)
}
