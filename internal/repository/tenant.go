package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/auth"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// ErrNoOrganization is returned by writes made without a tenant in context
var ErrNoOrganization = errors.New("no organization in context")

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// DefaultSortConfig returns a default sort configuration (created_at DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "createdAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the SQL ORDER BY clause from a whitelist of
// API field names to columns, falling back to defaultColumn
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// ApplyOrganizationFilter scopes a query to the caller's organization.
// A context without an organization matches nothing.
func ApplyOrganizationFilter(ctx context.Context, query *gorm.DB) *gorm.DB {
	return ApplyOrganizationFilterWithColumn(ctx, query, "organization_id")
}

// ApplyOrganizationFilterWithColumn scopes a query using a qualified column name
func ApplyOrganizationFilterWithColumn(ctx context.Context, query *gorm.DB, column string) *gorm.DB {
	orgID, ok := auth.OrganizationFromContext(ctx)
	if !ok {
		return query.Where("1 = 0")
	}
	return query.Where(column+" = ?", orgID)
}

// OrganizationID returns the caller's organization or ErrNoOrganization
func OrganizationID(ctx context.Context) (uuid.UUID, error) {
	orgID, ok := auth.OrganizationFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrNoOrganization
	}
	return orgID, nil
}

// listScoped loads every row of T belonging to the caller's organization
func listScoped[T any](ctx context.Context, db *gorm.DB, order string) ([]T, error) {
	var rows []T
	query := ApplyOrganizationFilter(ctx, db.WithContext(ctx).Model(new(T)))
	if order != "" {
		query = query.Order(order)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// getScoped loads one row of T by id within the caller's organization
func getScoped[T any](ctx context.Context, db *gorm.DB, id uuid.UUID) (*T, error) {
	var row T
	query := ApplyOrganizationFilter(ctx, db.WithContext(ctx).Where("id = ?", id))
	if err := query.First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
