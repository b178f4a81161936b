package processor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmfreitas/invoice-extractor/constants"
	"github.com/dmfreitas/invoice-extractor/internal/document"
	"github.com/dmfreitas/invoice-extractor/internal/llm"
	"github.com/dmfreitas/invoice-extractor/internal/repository"
	"github.com/dmfreitas/invoice-extractor/internal/utils"
)

// Config holds thresholds and behavior flags for the extract stage.
type Config struct {
	DefaultCurrency string
	Model           string
	MinTextChars    int  // attach a page render below this many chars
	VisionFallback  bool // allow attaching page renders at all
	Persist         bool // upsert invoices when a repository is wired
}

type ExtractStage struct {
	Logger    *slog.Logger
	Cfg       Config
	Extractor llm.FieldExtractor
	Loader    *document.Loader // page renders for the vision fallback
	Invoices  repository.InvoiceRepository
	Jobs      repository.ExtractJobRepository
}

func NewExtractStage(
	logger *slog.Logger,
	cfg Config,
	extractor llm.FieldExtractor,
	loader *document.Loader,
	invoices repository.InvoiceRepository,
	jobs repository.ExtractJobRepository,
) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = constants.DefaultCurrency
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 120
	}
	return &ExtractStage{
		Logger:    logger,
		Cfg:       cfg,
		Extractor: extractor,
		Loader:    loader,
		Invoices:  invoices,
		Jobs:      jobs,
	}
}

// Run sends the text layer to the model, cross-checks the result, and
// upserts the invoice. A failed upsert is recorded on the outcome instead of
// failing the run, so callers can still print what was extracted.
func (s *ExtractStage) Run(ctx context.Context, doc document.Document, res document.Result, jobID uuid.UUID) (*Outcome, error) {
	req := llm.ExtractRequest{
		Text:            res.Text,
		FilenameHint:    filepath.Base(doc.Path),
		DefaultCurrency: s.Cfg.DefaultCurrency,
	}
	if s.Cfg.VisionFallback && len(strings.TrimSpace(res.Text)) < s.Cfg.MinTextChars {
		if url := s.pageImage(ctx, doc); url != "" {
			req.ImageDataURL = url
			s.Logger.Info("text layer too thin; attaching page render",
				"path", doc.Path, "chars", len(res.Text))
		}
	}

	llmStart := time.Now()
	fields, raw, err := s.Extractor.ExtractFields(ctx, req)
	if err != nil {
		s.fail(ctx, jobID, err)
		return nil, fmt.Errorf("llm extract: %w", err)
	}
	extractMS := time.Since(llmStart).Milliseconds()

	if jobID != uuid.Nil {
		if err := s.Jobs.MarkExtracted(ctx, jobID, s.Cfg.Model); err != nil {
			s.Logger.Warn("job update failed", "job_id", jobID, "err", err)
		}
	}

	inv, err := utils.ToInvoice(fields, raw)
	if err != nil {
		s.fail(ctx, jobID, err)
		return nil, fmt.Errorf("convert fields: %w", err)
	}
	inv.SourcePath = doc.Path
	inv.SourceSHA256 = doc.SHA256
	inv.SourceBytes = doc.Bytes
	inv.PageCount = res.Pages
	inv.ModelName = s.Cfg.Model
	inv.ExtractMS = extractMS

	reasons := reviewInvoice(inv)
	inv.NeedsReview = len(reasons) > 0
	inv.ReviewReasons = strings.Join(reasons, "; ")
	if inv.NeedsReview {
		s.Logger.Warn("invoice flagged for review",
			"invoice_number", inv.InvoiceNumber, "reasons", reasons)
	}

	out := &Outcome{Fields: fields, RawJSON: raw, Invoice: inv}
	if s.Cfg.Persist && s.Invoices != nil {
		if _, err := s.Invoices.Upsert(ctx, inv); err != nil {
			out.SaveErr = err
		} else {
			out.Saved = true
		}
	}

	if jobID != uuid.Nil {
		var linked *uuid.UUID
		if out.Saved {
			linked = &inv.ID
		}
		if err := s.Jobs.FinishSuccess(ctx, jobID, linked, inv.NeedsReview); err != nil {
			s.Logger.Warn("job update failed", "job_id", jobID, "err", err)
		}
	}
	return out, nil
}

func (s *ExtractStage) fail(ctx context.Context, jobID uuid.UUID, err error) {
	if jobID == uuid.Nil {
		return
	}
	_ = s.Jobs.FinishFailure(ctx, jobID, err.Error())
}

// pageImage renders page one (PDF) or loads the photo itself (IMAGE) as a
// data URL for vision-capable models.
func (s *ExtractStage) pageImage(ctx context.Context, doc document.Document) string {
	switch doc.Format {
	case "PDF":
		b, err := s.Loader.RenderPage(ctx, doc.Path, 1)
		if err != nil {
			s.Logger.Warn("page render failed", "path", doc.Path, "err", err)
			return ""
		}
		return document.DataURL(b, "image/png")
	case "IMAGE":
		url, _, err := document.ReadAsDataURL(doc.Path)
		if err != nil {
			s.Logger.Warn("image load failed", "path", doc.Path, "err", err)
			return ""
		}
		return url
	}
	return ""
}
