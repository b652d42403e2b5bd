package repository

import (
	"context"
	"fmt"

	"github.com/straye-as/pipeline-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// opportunityUpsertBatch bounds the rows written per INSERT statement
const opportunityUpsertBatch = 200

type OpportunityRepository struct {
	db *gorm.DB
}

func NewOpportunityRepository(db *gorm.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// ListAll returns every opportunity of the caller's organization
func (r *OpportunityRepository) ListAll(ctx context.Context) ([]domain.Opportunity, error) {
	return listScoped[domain.Opportunity](ctx, r.db, "close_date DESC NULLS LAST, created_at DESC")
}

// UpsertByExternalReference inserts imported opportunities into the caller's
// organization, updating rows that already carry the same external reference.
// Rows without an external reference are rejected.
func (r *OpportunityRepository) UpsertByExternalReference(ctx context.Context, opps []domain.Opportunity) (int64, error) {
	if len(opps) == 0 {
		return 0, nil
	}
	orgID, err := OrganizationID(ctx)
	if err != nil {
		return 0, err
	}
	for i := range opps {
		if opps[i].ExternalReference == nil || *opps[i].ExternalReference == "" {
			return 0, fmt.Errorf("opportunity %q has no external reference", opps[i].Name)
		}
		opps[i].OrganizationID = orgID
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "organization_id"}, {Name: "external_reference"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "stage", "status", "value", "loan_amount", "bps", "split_percent",
				"expected_close_date", "close_date", "last_synced_at", "updated_at",
			}),
		}).
		CreateInBatches(&opps, opportunityUpsertBatch)
	return result.RowsAffected, result.Error
}
