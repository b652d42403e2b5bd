package pipeline

import "github.com/straye-as/pipeline-api/internal/domain"

// ComputeStats totals the items and breaks them down by stage.
// Probability is a percentage, so an item worth 1000 at 50 contributes 500
// to the weighted value. Breakdown rows follow the stage set order, followed
// by stage keys the set does not know in the order they were first seen.
func ComputeStats(items []domain.PipelineItem, stages *StageSet) domain.PipelineStats {
	stats := domain.PipelineStats{
		ItemCount: len(items),
		ByStage:   []domain.StageBreakdown{},
	}

	rows := make(map[domain.DealStage]*domain.StageBreakdown)
	var unknown []domain.DealStage

	for _, item := range items {
		weighted := WeightedAmount(item.Amount, item.Probability)
		stats.TotalValue += item.Amount
		stats.WeightedValue += weighted

		row, ok := rows[item.StageKey]
		if !ok {
			row = &domain.StageBreakdown{Stage: item.StageKey}
			rows[item.StageKey] = row
			if _, known := stages.Stage(item.StageKey); !known {
				unknown = append(unknown, item.StageKey)
			}
		}
		row.Count++
		row.Value += item.Amount
		row.Weighted += weighted
	}

	for _, st := range stages.Ordered() {
		if row, ok := rows[st.Key]; ok {
			stats.ByStage = append(stats.ByStage, *row)
		}
	}
	for _, key := range unknown {
		stats.ByStage = append(stats.ByStage, *rows[key])
	}

	return stats
}

// WeightedAmount scales amount by a 0..100 probability
func WeightedAmount(amount float64, probability int) float64 {
	return amount * float64(probability) / 100
}
