package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"gorm.io/gorm"
)

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// WithTx returns a repository bound to a transaction
func (r *QuoteRepository) WithTx(tx *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: tx}
}

func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	return getScoped[domain.Quote](ctx, r.db, id)
}

// ListAll returns every quote of the caller's organization, newest first
func (r *QuoteRepository) ListAll(ctx context.Context) ([]domain.Quote, error) {
	return listScoped[domain.Quote](ctx, r.db, "created_at DESC")
}

// MarkConverted links a quote to the deal created from it
func (r *QuoteRepository) MarkConverted(ctx context.Context, quote *domain.Quote, dealID uuid.UUID, at time.Time) error {
	query := ApplyOrganizationFilter(ctx, r.db.WithContext(ctx).Model(quote))
	result := query.Updates(map[string]interface{}{
		"status":              domain.QuoteStatusConverted,
		"deal_id":             dealID,
		"converted_to_deal":   true,
		"converted_deal_date": at,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	quote.Status = domain.QuoteStatusConverted
	quote.DealID = &dealID
	quote.ConvertedToDeal = true
	quote.ConvertedDealDate = &at
	return nil
}
