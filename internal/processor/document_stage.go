package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmfreitas/invoice-extractor/internal/document"
	"github.com/dmfreitas/invoice-extractor/internal/repository"
)

type DocumentStage struct {
	Loader *document.Loader
	Jobs   repository.ExtractJobRepository // nil when job tracking is off
	Logger *slog.Logger
}

func NewDocumentStage(loader *document.Loader, jobs repository.ExtractJobRepository, logger *slog.Logger) *DocumentStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStage{Loader: loader, Jobs: jobs, Logger: logger}
}

// Run loads the file, starts an extract_job, and produces the text layer.
// Job bookkeeping failures are reported but never stop the run.
func (s *DocumentStage) Run(ctx context.Context, path string) (document.Document, document.Result, uuid.UUID, error) {
	doc, err := s.Loader.Load(path)
	if err != nil {
		return document.Document{}, document.Result{}, uuid.Nil, fmt.Errorf("load document: %w", err)
	}

	jobID := uuid.Nil
	if s.Jobs != nil {
		job, err := s.Jobs.Start(ctx, doc.Path, doc.Format)
		if err != nil {
			s.Logger.Warn("job tracking unavailable", "path", path, "err", err)
		} else {
			jobID = job.ID
		}
	}

	res, err := s.Loader.ExtractText(ctx, doc)
	if err != nil {
		if jobID != uuid.Nil {
			_ = s.Jobs.FinishFailure(ctx, jobID, err.Error())
		}
		return doc, res, jobID, fmt.Errorf("extract text: %w", err)
	}

	if jobID != uuid.Nil {
		if err := s.Jobs.MarkTextExtracted(ctx, jobID, len(res.Text), res.Pages); err != nil {
			s.Logger.Warn("job update failed", "job_id", jobID, "err", err)
		}
	}
	return doc, res, jobID, nil
}
