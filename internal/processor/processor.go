package processor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmfreitas/invoice-extractor/internal/document"
	"github.com/dmfreitas/invoice-extractor/internal/entity"
	"github.com/dmfreitas/invoice-extractor/internal/llm"
)

// Outcome carries everything callers print, serve, or export after one run.
type Outcome struct {
	Doc       document.Document
	Extracted document.Result
	Fields    llm.InvoiceFields
	RawJSON   []byte
	Invoice   *entity.Invoice
	JobID     uuid.UUID

	// Saved reports whether the upsert went through; SaveErr holds the
	// reason when it did not. A failed save never fails the run.
	Saved   bool
	SaveErr error
}

// Processor coordinates document load/text extraction, then LLM field
// extraction and persistence.
type Processor struct {
	Logger    *slog.Logger
	Documents *DocumentStage
	Extract   *ExtractStage
}

func NewProcessor(logger *slog.Logger, docs *DocumentStage, extract *ExtractStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Documents: docs, Extract: extract}
}

// Process runs the full pipeline for one file path.
func (p *Processor) Process(ctx context.Context, path string) (*Outcome, error) {
	doc, res, jobID, err := p.Documents.Run(ctx, path)
	if err != nil {
		p.Logger.Error("processor.document.failed", "path", path, "err", err)
		return nil, err
	}
	p.Logger.Info("processor.document.ok",
		"path", path,
		"job_id", jobID,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
	)

	out, err := p.Extract.Run(ctx, doc, res, jobID)
	if err != nil {
		p.Logger.Error("processor.extract.failed", "job_id", jobID, "err", err)
		return nil, err
	}
	out.Doc = doc
	out.Extracted = res
	out.JobID = jobID

	p.Logger.Info("processor.extract.ok",
		"job_id", jobID,
		"invoice_number", out.Invoice.InvoiceNumber,
		"needs_review", out.Invoice.NeedsReview,
		"saved", out.Saved,
	)
	return out, nil
}
