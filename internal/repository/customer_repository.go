package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return getScoped[domain.Customer](ctx, r.db, id)
}

// ListAll returns every customer of the caller's organization by name
func (r *CustomerRepository) ListAll(ctx context.Context) ([]domain.Customer, error) {
	return listScoped[domain.Customer](ctx, r.db, "name ASC")
}
