package repository

import (
	"context"

	"github.com/straye-as/pipeline-api/internal/domain"
	"gorm.io/gorm"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// ListAll returns every invoice of the caller's organization, newest first
func (r *InvoiceRepository) ListAll(ctx context.Context) ([]domain.Invoice, error) {
	return listScoped[domain.Invoice](ctx, r.db, "created_at DESC")
}
