package pipeline

import (
	"fmt"
	"time"

	"github.com/straye-as/pipeline-api/internal/domain"
)

// Transition is a requested stage change. From is the stage the caller
// believes the deal is in.
type Transition struct {
	From domain.DealStage
	To   domain.DealStage
}

// MoveStage applies a stage transition to deal and returns the updated copy.
// Probability is taken from the target stage; a terminal target also stamps
// the actual close date with the date of now. Deals in a terminal stage must
// be reopened before they can move again.
func MoveStage(item domain.PipelineItem, deal domain.Deal, t Transition, stages *StageSet, now time.Time) (domain.Deal, error) {
	if item.Kind != domain.PipelineItemDeal {
		return domain.Deal{}, fmt.Errorf("%w: item kind %s", ErrNotADeal, item.Kind)
	}
	if item.ID != deal.ID {
		return domain.Deal{}, ErrItemMismatch
	}

	target, ok := stages.Stage(t.To)
	if !ok {
		return domain.Deal{}, fmt.Errorf("%w: %s", ErrUnknownStage, t.To)
	}
	if deal.Stage != t.From {
		return domain.Deal{}, fmt.Errorf("%w: expected %s, deal is in %s", ErrStageConflict, t.From, deal.Stage)
	}
	if stages.IsTerminal(deal.Stage) {
		return domain.Deal{}, fmt.Errorf("%w: %s", ErrTerminalStage, deal.Stage)
	}

	deal.Stage = target.Key
	deal.Probability = target.DefaultProbability
	if target.IsTerminal {
		closed := dateOf(now)
		deal.ActualCloseDate = &closed
	}
	deal.ApplyDerivedValues()
	return deal, nil
}

// CloseWon marks an open deal as won. The stage set must contain closed_won.
func CloseWon(deal domain.Deal, stages *StageSet, now time.Time) (domain.Deal, error) {
	target, err := closingStage(deal, stages, domain.DealStageClosedWon)
	if err != nil {
		return domain.Deal{}, err
	}
	closed := dateOf(now)
	deal.Stage = target.Key
	deal.Probability = target.DefaultProbability
	deal.FinalStatus = domain.FinalStatusSale
	deal.LostReason = ""
	deal.ActualCloseDate = &closed
	deal.ApplyDerivedValues()
	return deal, nil
}

// CloseLost marks an open deal as lost. The stage set must contain closed_lost.
func CloseLost(deal domain.Deal, reason string, stages *StageSet, now time.Time) (domain.Deal, error) {
	target, err := closingStage(deal, stages, domain.DealStageClosedLost)
	if err != nil {
		return domain.Deal{}, err
	}
	closed := dateOf(now)
	deal.Stage = target.Key
	deal.Probability = target.DefaultProbability
	deal.FinalStatus = domain.FinalStatusNoSale
	deal.LostReason = reason
	deal.ActualCloseDate = &closed
	deal.ApplyDerivedValues()
	return deal, nil
}

func closingStage(deal domain.Deal, stages *StageSet, key domain.DealStage) (domain.PipelineStage, error) {
	if stages.IsTerminal(deal.Stage) {
		return domain.PipelineStage{}, fmt.Errorf("%w: %s", ErrTerminalStage, deal.Stage)
	}
	target, ok := stages.Stage(key)
	if !ok || !target.IsTerminal {
		return domain.PipelineStage{}, fmt.Errorf("%w: %s", ErrUnknownStage, key)
	}
	return target, nil
}

// Reopen returns a closed deal to the first open stage of the set and clears its outcome
func Reopen(deal domain.Deal, stages *StageSet) (domain.Deal, error) {
	if !stages.IsTerminal(deal.Stage) {
		return domain.Deal{}, fmt.Errorf("%w: %s", ErrNotTerminal, deal.Stage)
	}
	first := stages.FirstOpen()
	deal.Stage = first.Key
	deal.Probability = first.DefaultProbability
	deal.FinalStatus = ""
	deal.LostReason = ""
	deal.ActualCloseDate = nil
	deal.ApplyDerivedValues()
	return deal, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
