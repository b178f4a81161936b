package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmfreitas/invoice-extractor/internal/common"
	"github.com/dmfreitas/invoice-extractor/internal/entity"
)

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Vendor   string
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

type InvoiceRepository interface {
	// Upsert writes the invoice, replacing any earlier record with the same
	// vendor and invoice number together with its line items.
	Upsert(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]*entity.Invoice, error)
	Count(ctx context.Context) (int64, error)
}

type invoiceRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewInvoiceRepository(db *gorm.DB, logger *slog.Logger) InvoiceRepository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Upsert(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.Invoice
		err := tx.Where("vendor = ? AND invoice_number = ?", inv.Vendor, inv.InvoiceNumber).
			First(&existing).Error
		switch {
		case err == nil:
			// Same document extracted again: keep identity, replace content.
			inv.ID = existing.ID
			inv.CreatedAt = existing.CreatedAt
			if err := tx.Where("invoice_id = ?", existing.ID).Delete(&entity.LineItem{}).Error; err != nil {
				return err
			}
			for i := range inv.Items {
				inv.Items[i].ID = uuid.Nil
				inv.Items[i].InvoiceID = existing.ID
			}
			if err := tx.Omit(clause.Associations).Save(inv).Error; err != nil {
				return err
			}
			if len(inv.Items) > 0 {
				if err := tx.Create(&inv.Items).Error; err != nil {
					return err
				}
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(inv).Error
		default:
			return err
		}
	})
	if err != nil {
		r.logger.Error("invoice upsert failed",
			"vendor", inv.Vendor, "invoice_number", inv.InvoiceNumber, "error", err)
		return nil, common.NewAppError("DB_ERROR", "invoice upsert failed", err)
	}
	r.logger.Info("invoice saved",
		"invoice_id", inv.ID, "vendor", inv.Vendor, "invoice_number", inv.InvoiceNumber,
		"items", len(inv.Items))
	return inv, nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("invoice lookup failed", "invoice_id", id, "error", err)
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter ListFilter) ([]*entity.Invoice, error) {
	q := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
	if filter.Vendor != "" {
		q = q.Where("vendor = ?", filter.Vendor)
	}
	if filter.FromDate != nil {
		q = q.Where("invoice_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		q = q.Where("invoice_date <= ?", *filter.ToDate)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var invs []*entity.Invoice
	if err := q.Order("invoice_date DESC, created_at DESC").Find(&invs).Error; err != nil {
		r.logger.Error("failed to list invoices", "error", err)
		return nil, err
	}
	return invs, nil
}

func (r *invoiceRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&entity.Invoice{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
