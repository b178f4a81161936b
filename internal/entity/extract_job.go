package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmfreitas/invoice-extractor/constants"
)

// ExtractJob records one attempt to turn a document into an Invoice.
type ExtractJob struct {
	ID         uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	SourcePath string              `json:"source_path"`
	Format     string              `gorm:"size:16" json:"format"`
	Status     constants.JobStatus `gorm:"size:16;index" json:"status"`

	InvoiceID    *uuid.UUID `gorm:"type:uuid" json:"invoice_id,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	NeedsReview  bool       `json:"needs_review"`

	TextChars int     `json:"text_chars"`
	PageCount int     `json:"page_count"`
	ModelName *string `json:"model_name,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (j *ExtractJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
