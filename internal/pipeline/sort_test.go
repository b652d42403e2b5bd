package pipeline_test

import (
	"testing"
	"time"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/stretchr/testify/assert"
)

func numbers(items []domain.PipelineItem) []string {
	out := []string{}
	for _, i := range items {
		out = append(out, i.DisplayNumber)
	}
	return out
}

func TestSortItems(t *testing.T) {
	items := []domain.PipelineItem{
		item("Émile", "1", 300, "qualified", baseTime.Add(-time.Hour)),
		item("bravo", "2", 100, "lead", baseTime.Add(-3*time.Hour)),
		item("Alpha", "3", 200, "negotiation", baseTime),
		item("Zulu", "4", 100, "closed_won", baseTime.Add(-2*time.Hour)),
	}
	items[0].Probability = 25
	items[1].Probability = 10
	items[2].Probability = 75
	items[3].Probability = 25

	tests := []struct {
		name      string
		field     pipeline.SortField
		direction pipeline.SortDirection
		expected  []string
	}{
		{"customer asc is locale aware", pipeline.SortByCustomer, pipeline.SortAsc, []string{"3", "2", "1", "4"}},
		{"customer desc", pipeline.SortByCustomer, pipeline.SortDesc, []string{"4", "1", "2", "3"}},
		{"amount asc keeps ties in input order", pipeline.SortByAmount, pipeline.SortAsc, []string{"2", "4", "3", "1"}},
		{"amount desc keeps ties in input order", pipeline.SortByAmount, pipeline.SortDesc, []string{"1", "3", "2", "4"}},
		{"stage sorts by key text", pipeline.SortByStage, pipeline.SortAsc, []string{"4", "2", "3", "1"}},
		{"probability asc", pipeline.SortByProbability, pipeline.SortAsc, []string{"2", "1", "4", "3"}},
		{"date desc", pipeline.SortByDate, pipeline.SortDesc, []string{"3", "1", "4", "2"}},
		{"date asc", pipeline.SortByDate, pipeline.SortAsc, []string{"2", "4", "1", "3"}},
		{"unknown field leaves order", pipeline.SortField("color"), pipeline.SortAsc, []string{"1", "2", "3", "4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pipeline.SortItems(items, tt.field, tt.direction)
			assert.Equal(t, tt.expected, numbers(got))
		})
	}

	assert.Equal(t, []string{"1", "2", "3", "4"}, numbers(items), "input must not be reordered")
}

func TestValidSortField(t *testing.T) {
	assert.True(t, pipeline.ValidSortField("probability"))
	assert.False(t, pipeline.ValidSortField("value"))
}
