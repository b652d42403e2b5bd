package pipeline

import (
	"strings"
	"time"

	"github.com/straye-as/pipeline-api/internal/domain"
)

// DateRange restricts items by creation time relative to now
type DateRange string

const (
	DateRangeToday  DateRange = "today"
	DateRange7Days  DateRange = "7d"
	DateRange30Days DateRange = "30d"
	DateRange90Days DateRange = "90d"
	DateRangeYTD    DateRange = "ytd"
	DateRangeAll    DateRange = "all"
)

// ValueRange restricts items to a fixed amount bracket
type ValueRange string

const (
	ValueRangeUnder1K    ValueRange = "under_1k"
	ValueRange1KTo10K    ValueRange = "1k_10k"
	ValueRange10KTo50K   ValueRange = "10k_50k"
	ValueRange50KTo100K  ValueRange = "50k_100k"
	ValueRange100KTo500K ValueRange = "100k_500k"
	ValueRangeOver500K   ValueRange = "over_500k"
	ValueRangeAll        ValueRange = "all"
)

const stageFilterAll = "all"

// Filter selects pipeline items. Zero values match everything.
type Filter struct {
	Search     string
	Stage      string
	DateRange  DateRange
	ValueRange ValueRange
}

type bracket struct {
	min, max float64
	bounded  bool
}

// Brackets include their lower bound and exclude their upper bound
var valueBrackets = map[ValueRange]bracket{
	ValueRangeUnder1K:    {min: 0, max: 1_000, bounded: true},
	ValueRange1KTo10K:    {min: 1_000, max: 10_000, bounded: true},
	ValueRange10KTo50K:   {min: 10_000, max: 50_000, bounded: true},
	ValueRange50KTo100K:  {min: 50_000, max: 100_000, bounded: true},
	ValueRange100KTo500K: {min: 100_000, max: 500_000, bounded: true},
	ValueRangeOver500K:   {min: 500_000},
}

// ValidDateRange reports whether r is a known date range
func ValidDateRange(r DateRange) bool {
	switch r {
	case "", DateRangeToday, DateRange7Days, DateRange30Days, DateRange90Days, DateRangeYTD, DateRangeAll:
		return true
	}
	return false
}

// ValidValueRange reports whether r is a known value range
func ValidValueRange(r ValueRange) bool {
	if r == "" || r == ValueRangeAll {
		return true
	}
	_, ok := valueBrackets[r]
	return ok
}

// FilterItems returns the items matching every criterion of f, keeping their order.
// Date ranges are evaluated against now.
func FilterItems(items []domain.PipelineItem, f Filter, now time.Time) []domain.PipelineItem {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	since, hasSince := dateRangeStart(f.DateRange, now)
	valueBracket, hasBracket := valueBrackets[f.ValueRange]

	out := make([]domain.PipelineItem, 0, len(items))
	for _, item := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(item.CustomerName), search) &&
			!strings.Contains(strings.ToLower(item.DisplayNumber), search) {
			continue
		}
		if f.Stage != "" && f.Stage != stageFilterAll && string(item.StageKey) != f.Stage {
			continue
		}
		if hasSince && item.CreatedAt.Before(since) {
			continue
		}
		if hasBracket && !valueBracket.contains(item.Amount) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (b bracket) contains(amount float64) bool {
	if amount < b.min {
		return false
	}
	return !b.bounded || amount < b.max
}

func dateRangeStart(r DateRange, now time.Time) (time.Time, bool) {
	switch r {
	case DateRangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case DateRange7Days:
		return now.AddDate(0, 0, -7), true
	case DateRange30Days:
		return now.AddDate(0, 0, -30), true
	case DateRange90Days:
		return now.AddDate(0, 0, -90), true
	case DateRangeYTD:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), true
	}
	return time.Time{}, false
}
