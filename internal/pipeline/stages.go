// Package pipeline holds the tenant stage engine and the pure aggregation
// functions behind the pipeline board: item building, filtering, sorting,
// statistics and stage transitions.
package pipeline

import (
	"sort"

	"github.com/straye-as/pipeline-api/internal/domain"
)

// StageSource names where a stage set was resolved from
type StageSource string

const (
	SourceOrganization StageSource = "organization"
	SourceIndustry     StageSource = "industry"
	SourceDefault      StageSource = "default"
	SourceCache        StageSource = "cache"
)

// DefaultStages returns the built-in stage set used when no tenant or
// industry configuration resolves
func DefaultStages() []domain.PipelineStage {
	return []domain.PipelineStage{
		{Key: domain.DealStageLead, Label: "Lead", Order: 1, DefaultProbability: 10,
			Color: domain.StageColor{Bg: "bg-slate-100", Text: "text-slate-700"}},
		{Key: domain.DealStageQualified, Label: "Qualified", Order: 2, DefaultProbability: 25,
			Color: domain.StageColor{Bg: "bg-blue-100", Text: "text-blue-700"}},
		{Key: domain.DealStageProposal, Label: "Proposal", Order: 3, DefaultProbability: 50,
			Color: domain.StageColor{Bg: "bg-purple-100", Text: "text-purple-700"}},
		{Key: domain.DealStageNegotiation, Label: "Negotiation", Order: 4, DefaultProbability: 75,
			Color: domain.StageColor{Bg: "bg-amber-100", Text: "text-amber-700"}},
		{Key: domain.DealStageClosedWon, Label: "Closed Won", Order: 5, DefaultProbability: 100, IsTerminal: true,
			Color: domain.StageColor{Bg: "bg-green-100", Text: "text-green-700"}},
		{Key: domain.DealStageClosedLost, Label: "Closed Lost", Order: 6, DefaultProbability: 0, IsTerminal: true,
			Color: domain.StageColor{Bg: "bg-red-100", Text: "text-red-700"}},
	}
}

// StageSet is an immutable, ordered set of stages for one organization.
// It is safe for concurrent use.
type StageSet struct {
	stages []domain.PipelineStage
	byKey  map[domain.DealStage]int
	source StageSource
}

// NewStageSet builds a set from stages. Stages are stable-sorted by Order,
// probabilities are clamped to 0..100, missing colors get the neutral
// fallback, and later duplicates of a key are dropped. An empty input
// yields the default set.
func NewStageSet(stages []domain.PipelineStage, source StageSource) *StageSet {
	if len(stages) == 0 {
		stages = DefaultStages()
		source = SourceDefault
	}

	ordered := make([]domain.PipelineStage, 0, len(stages))
	seen := make(map[domain.DealStage]bool, len(stages))
	for _, st := range stages {
		if st.Key == "" || seen[st.Key] {
			continue
		}
		seen[st.Key] = true
		st.DefaultProbability = clampProbability(st.DefaultProbability)
		if st.Color.Bg == "" {
			st.Color.Bg = domain.DefaultStageColor.Bg
		}
		if st.Color.Text == "" {
			st.Color.Text = domain.DefaultStageColor.Text
		}
		ordered = append(ordered, st)
	}
	if len(ordered) == 0 {
		return NewStageSet(nil, SourceDefault)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	byKey := make(map[domain.DealStage]int, len(ordered))
	for i, st := range ordered {
		byKey[st.Key] = i
	}

	return &StageSet{stages: ordered, byKey: byKey, source: source}
}

// Stage looks up a stage by key
func (s *StageSet) Stage(key domain.DealStage) (domain.PipelineStage, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return domain.PipelineStage{}, false
	}
	return s.stages[i], true
}

// Color returns the stage's badge classes, or the neutral fallback for unknown keys
func (s *StageSet) Color(key domain.DealStage) domain.StageColor {
	if st, ok := s.Stage(key); ok {
		return st.Color
	}
	return domain.DefaultStageColor
}

// Probability returns the stage's default probability, or 0 for unknown keys
func (s *StageSet) Probability(key domain.DealStage) int {
	if st, ok := s.Stage(key); ok {
		return st.DefaultProbability
	}
	return 0
}

// IsTerminal reports whether key names a terminal stage of this set
func (s *StageSet) IsTerminal(key domain.DealStage) bool {
	st, ok := s.Stage(key)
	return ok && st.IsTerminal
}

// Ordered returns a copy of the stages sorted by order
func (s *StageSet) Ordered() []domain.PipelineStage {
	out := make([]domain.PipelineStage, len(s.stages))
	copy(out, s.stages)
	return out
}

// FirstOpen returns the first non-terminal stage, the initial stage for new deals.
// A set with only terminal stages returns its first stage.
func (s *StageSet) FirstOpen() domain.PipelineStage {
	for _, st := range s.stages {
		if !st.IsTerminal {
			return st
		}
	}
	return s.stages[0]
}

// Len returns the number of stages
func (s *StageSet) Len() int {
	return len(s.stages)
}

// Source reports where the set was resolved from
func (s *StageSet) Source() StageSource {
	return s.source
}

func clampProbability(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
