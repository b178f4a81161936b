package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmfreitas/invoice-extractor/constants"
	"github.com/dmfreitas/invoice-extractor/internal/entity"
)

// ExtractJobRepository tracks each extraction attempt through its states.
// A job advances RUNNING -> TEXT_OK -> LLM_OK -> DONE, or stops at FAILED.
type ExtractJobRepository interface {
	Start(ctx context.Context, sourcePath, format string) (*entity.ExtractJob, error)
	MarkTextExtracted(ctx context.Context, jobID uuid.UUID, textChars, pageCount int) error
	MarkExtracted(ctx context.Context, jobID uuid.UUID, modelName string) error
	FinishSuccess(ctx context.Context, jobID uuid.UUID, invoiceID *uuid.UUID, needsReview bool) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	ListRecent(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewExtractJobRepository(db *gorm.DB, log *slog.Logger) ExtractJobRepository {
	return &extractJobRepo{db: db, log: log}
}

func (r *extractJobRepo) Start(ctx context.Context, sourcePath, format string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		SourcePath: sourcePath,
		Format:     format,
		Status:     constants.JobStatusRunning,
		StartedAt:  time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		r.log.Error("extract_job start failed", "source_path", sourcePath, "err", err)
		return nil, err
	}
	r.log.Info("extract_job started", "job_id", job.ID, "source_path", sourcePath, "format", format)
	return job, nil
}

func (r *extractJobRepo) MarkTextExtracted(ctx context.Context, jobID uuid.UUID, textChars, pageCount int) error {
	return r.update(ctx, jobID, map[string]any{
		"status":     constants.JobStatusTextOK,
		"text_chars": textChars,
		"page_count": pageCount,
	})
}

func (r *extractJobRepo) MarkExtracted(ctx context.Context, jobID uuid.UUID, modelName string) error {
	return r.update(ctx, jobID, map[string]any{
		"status":     constants.JobStatusLLMOK,
		"model_name": modelName,
	})
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, invoiceID *uuid.UUID, needsReview bool) error {
	err := r.update(ctx, jobID, map[string]any{
		"status":       constants.JobStatusDone,
		"invoice_id":   invoiceID,
		"needs_review": needsReview,
		"finished_at":  time.Now(),
	})
	if err != nil {
		return err
	}
	r.log.Info("extract_job finished (DONE)", "job_id", jobID, "needs_review", needsReview)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	err := r.update(ctx, jobID, map[string]any{
		"status":        constants.JobStatusFailed,
		"error_message": message,
		"finished_at":   time.Now(),
	})
	if err != nil {
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) ListRecent(ctx context.Context, limit int) ([]*entity.ExtractJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []*entity.ExtractJob
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		r.log.Error("failed to list extract jobs", "err", err)
		return nil, err
	}
	return jobs, nil
}

func (r *extractJobRepo) update(ctx context.Context, jobID uuid.UUID, fields map[string]any) error {
	err := r.db.WithContext(ctx).
		Model(&entity.ExtractJob{}).
		Where("id = ?", jobID).
		Updates(fields).Error
	if err != nil {
		r.log.Error("extract_job update failed", "job_id", jobID, "err", err)
	}
	return err
}
