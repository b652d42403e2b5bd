package pipeline_test

import (
	"testing"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats_PercentageConvention(t *testing.T) {
	items := []domain.PipelineItem{
		{Amount: 1000, Probability: 50, StageKey: domain.DealStageProposal},
	}

	stats := pipeline.ComputeStats(items, defaultSet())

	assert.Equal(t, 1000.0, stats.TotalValue)
	assert.Equal(t, 500.0, stats.WeightedValue)
}

func TestComputeStats_Breakdown(t *testing.T) {
	items := []domain.PipelineItem{
		{Amount: 4000, Probability: 50, StageKey: domain.DealStageProposal},
		{Amount: 1200, Probability: 100, StageKey: domain.DealStageWon},
		{Amount: 2000, Probability: 10, StageKey: domain.DealStageLead},
		{Amount: 1000, Probability: 50, StageKey: domain.DealStageProposal},
		{Amount: 600, Probability: 75, StageKey: domain.DealStageNegotiation},
	}

	stats := pipeline.ComputeStats(items, defaultSet())

	assert.Equal(t, 5, stats.ItemCount)
	assert.InDelta(t, 8800.0, stats.TotalValue, 0.001)
	assert.InDelta(t, 2000+1200+200+500+450.0, stats.WeightedValue, 0.001)

	require.Len(t, stats.ByStage, 4)
	assert.Equal(t, domain.StageBreakdown{Stage: domain.DealStageLead, Count: 1, Value: 2000, Weighted: 200}, stats.ByStage[0])
	assert.Equal(t, domain.StageBreakdown{Stage: domain.DealStageProposal, Count: 2, Value: 5000, Weighted: 2500}, stats.ByStage[1])
	assert.Equal(t, domain.DealStageNegotiation, stats.ByStage[2].Stage)
	assert.Equal(t, domain.DealStageWon, stats.ByStage[3].Stage, "keys outside the set come last")
}

func TestComputeStats_Empty(t *testing.T) {
	stats := pipeline.ComputeStats(nil, defaultSet())

	assert.Zero(t, stats.TotalValue)
	assert.Zero(t, stats.WeightedValue)
	assert.Zero(t, stats.ItemCount)
	assert.NotNil(t, stats.ByStage)
	assert.Empty(t, stats.ByStage)
}

func TestComputeStats_SumOfContributions(t *testing.T) {
	items := []domain.PipelineItem{
		{Amount: 333.33, Probability: 33},
		{Amount: 12000, Probability: 90},
		{Amount: 0, Probability: 100},
		{Amount: 75, Probability: 0},
	}

	stats := pipeline.ComputeStats(items, defaultSet())

	var expected float64
	for _, i := range items {
		expected += i.Amount * float64(i.Probability) / 100
	}
	assert.InDelta(t, expected, stats.WeightedValue, 1e-9)
}
