// Package app wires configuration into the object graph the binaries share:
// LLM client, document loader, repositories, pipeline, exporter.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/dmfreitas/invoice-extractor/internal/common"
	"github.com/dmfreitas/invoice-extractor/internal/document"
	"github.com/dmfreitas/invoice-extractor/internal/export"
	"github.com/dmfreitas/invoice-extractor/internal/llm"
	"github.com/dmfreitas/invoice-extractor/internal/llm/gemini"
	"github.com/dmfreitas/invoice-extractor/internal/llm/openai"
	"github.com/dmfreitas/invoice-extractor/internal/processor"
	"github.com/dmfreitas/invoice-extractor/internal/repository"
)

// Options selects optional parts of the graph.
type Options struct {
	// Persist opens the store and makes the pipeline upsert extracted
	// invoices. A store that fails to open is logged and skipped; the
	// pipeline still runs, records just stay unsaved.
	Persist bool
}

// Dependencies holds all application dependencies.
type Dependencies struct {
	Config *common.Config
	Logger *slog.Logger

	DB       *gorm.DB
	Invoices repository.InvoiceRepository
	Jobs     repository.ExtractJobRepository

	Loader    *document.Loader
	Extractor llm.FieldExtractor
	Processor *processor.Processor
	Exporter  *export.Service
}

// InitDependencies builds the full graph from config.
func InitDependencies(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*Dependencies, error) {
	if logger == nil {
		logger = slog.Default()
	}
	deps := &Dependencies{Config: cfg, Logger: logger}

	if err := deps.initExtractor(ctx); err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}
	if opts.Persist {
		deps.initStore(ctx)
	}
	deps.initPipeline(opts)

	logger.Debug("dependencies initialized", "provider", cfg.LLM.Provider, "persist", deps.DB != nil)
	return deps, nil
}

// NewExtractor builds a FieldExtractor for the configured provider.
// Unknown provider names are a startup error.
func NewExtractor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (llm.FieldExtractor, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			Timeout:        cfg.LLM.Timeout,
			MaxRetries:     cfg.LLM.MaxRetries,
			Lenient:        cfg.LLM.Lenient,
			MaxPromptChars: cfg.LLM.MaxPromptChars,
		}, logger), nil
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:         cfg.LLM.GeminiAPIKey,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			Timeout:        cfg.LLM.Timeout,
			Lenient:        cfg.LLM.Lenient,
			MaxPromptChars: cfg.LLM.MaxPromptChars,
		}, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR",
			fmt.Sprintf("unknown LLM provider %q", cfg.LLM.Provider), common.ErrInvalidInput)
	}
}

func (d *Dependencies) initExtractor(ctx context.Context) error {
	ex, err := NewExtractor(ctx, d.Config, d.Logger)
	if err != nil {
		return err
	}
	d.Extractor = ex
	return nil
}

// initStore opens the database. Failure is not fatal: extraction still
// works, the run just cannot save.
func (d *Dependencies) initStore(ctx context.Context) {
	db, err := repository.Open(ctx, repository.Config{
		URL:             d.Config.Database.URL,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		MaxConnLifetime: 30 * time.Minute,
		DialTimeout:     3 * time.Second,
	}, d.Logger)
	if err != nil {
		d.Logger.Warn("database unavailable, continuing without persistence", "error", err)
		return
	}
	d.DB = db
	d.Invoices = repository.NewInvoiceRepository(db, d.Logger)
	d.Jobs = repository.NewExtractJobRepository(db, d.Logger)
	d.Exporter = export.NewService(d.Invoices, d.Logger)
}

func (d *Dependencies) initPipeline(opts Options) {
	d.Loader = document.NewLoader(document.Config{
		Pdftotext:    d.Config.Extract.PdftotextBin,
		Pdftoppm:     d.Config.Extract.PdftoppmBin,
		Tesseract:    d.Config.Extract.TesseractBin,
		DPI:          int(d.Config.Extract.RenderDPI),
		MinTextChars: d.Config.Extract.MinTextChars,
	}, d.Logger)

	docs := processor.NewDocumentStage(d.Loader, d.Jobs, d.Logger)
	extract := processor.NewExtractStage(d.Logger, processor.Config{
		Model:          d.Config.LLM.Model,
		MinTextChars:   d.Config.Extract.MinTextChars,
		VisionFallback: d.Config.LLM.VisionFallback,
		Persist:        opts.Persist && d.DB != nil,
	}, d.Extractor, d.Loader, d.Invoices, d.Jobs)

	d.Processor = processor.NewProcessor(d.Logger, docs, extract)
}

// Close releases held resources.
func (d *Dependencies) Close() {
	if d.DB != nil {
		repository.Close(d.DB, d.Logger)
	}
}
