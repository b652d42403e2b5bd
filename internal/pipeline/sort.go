package pipeline

import (
	"sort"

	"github.com/straye-as/pipeline-api/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortField is a pipeline item sort key
type SortField string

const (
	SortByCustomer    SortField = "customer"
	SortByAmount      SortField = "amount"
	SortByStage       SortField = "stage"
	SortByProbability SortField = "probability"
	SortByDate        SortField = "date"
)

// SortDirection is ascending or descending
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ValidSortField reports whether f is a known sort field
func ValidSortField(f SortField) bool {
	switch f {
	case SortByCustomer, SortByAmount, SortByStage, SortByProbability, SortByDate:
		return true
	}
	return false
}

// SortItems returns a sorted copy of items. The sort is stable, so items that
// compare equal keep their input order in both directions. Stage sorts by key
// text, not by pipeline order. An unknown field returns the copy unsorted.
func SortItems(items []domain.PipelineItem, field SortField, direction SortDirection) []domain.PipelineItem {
	out := make([]domain.PipelineItem, len(items))
	copy(out, items)

	less := lessFunc(out, field)
	if less == nil {
		return out
	}

	if direction == SortDesc {
		sort.SliceStable(out, func(i, j int) bool { return less(j, i) })
	} else {
		sort.SliceStable(out, less)
	}
	return out
}

func lessFunc(items []domain.PipelineItem, field SortField) func(i, j int) bool {
	switch field {
	case SortByCustomer:
		// Collators keep internal buffers and are not safe to share
		c := collate.New(language.Und)
		return func(i, j int) bool {
			return c.CompareString(items[i].CustomerName, items[j].CustomerName) < 0
		}
	case SortByAmount:
		return func(i, j int) bool { return items[i].Amount < items[j].Amount }
	case SortByStage:
		return func(i, j int) bool { return items[i].StageKey < items[j].StageKey }
	case SortByProbability:
		return func(i, j int) bool { return items[i].Probability < items[j].Probability }
	case SortByDate:
		return func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) }
	}
	return nil
}
