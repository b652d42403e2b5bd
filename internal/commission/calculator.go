// Package commission derives mortgage commission deals from loan
// opportunities and rolls them up into a financial summary.
package commission

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
)

const (
	// DefaultBPS is used when an opportunity has no positive basis points
	DefaultBPS = 50.0
	// DefaultSplitPercent is used when an opportunity has no positive split
	DefaultSplitPercent = 85.0
	// DefaultRecentLimit is the number of deals listed as recent
	DefaultRecentLimit = 10
)

// Opportunity statuses that produce a commission deal
const (
	StatusClearToClose        = "Clear to Close"
	StatusComplianceCompleted = "Compliance Completed"
)

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Option configures a Calculator
type Option func(*Calculator)

// WithDemoData fills the monthly series with the illustrative placeholder
// year when there are no real deals, and flags the summary as demo data
func WithDemoData(enabled bool) Option {
	return func(c *Calculator) {
		c.demo = enabled
	}
}

// WithRecentLimit sets how many deals are listed as recent
func WithRecentLimit(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.recentLimit = n
		}
	}
}

// Calculator holds one organization's opportunities and the commission deals
// derived from them. Construct one per tenant or request; it is safe for
// concurrent use.
type Calculator struct {
	mu            sync.RWMutex
	opportunities []domain.Opportunity
	deals         []domain.CommissionDeal

	demo        bool
	recentLimit int
}

// NewCalculator creates an empty calculator
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{recentLimit: DefaultRecentLimit}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOpportunities replaces the opportunity list and recomputes every derived deal
func (c *Calculator) SetOpportunities(opps []domain.Opportunity) {
	owned := make([]domain.Opportunity, len(opps))
	copy(owned, opps)
	deals := DeriveDeals(owned)

	c.mu.Lock()
	c.opportunities = owned
	c.deals = deals
	c.mu.Unlock()
}

// Deals returns a copy of the derived deals in opportunity order
func (c *Calculator) Deals() []domain.CommissionDeal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.CommissionDeal, len(c.deals))
	copy(out, c.deals)
	return out
}

// DealByOpportunityID finds the deal derived from the given opportunity
func (c *Calculator) DealByOpportunityID(id uuid.UUID) (domain.CommissionDeal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.deals {
		if d.OpportunityID == id {
			return d, true
		}
	}
	return domain.CommissionDeal{}, false
}

// Summary rolls the derived deals up into totals, a twelve-month series and
// the most recent deals. Months are bucketed by calendar month only, so deals
// closing in March of different years share the Mar bucket. Deals without a
// close date count toward totals but not toward any month.
func (c *Calculator) Summary() domain.FinancialSummary {
	c.mu.RLock()
	deals := make([]domain.CommissionDeal, len(c.deals))
	copy(deals, c.deals)
	c.mu.RUnlock()

	summary := domain.FinancialSummary{
		TotalDeals:  len(deals),
		MonthlyData: make([]domain.MonthlyCommission, len(monthNames)),
		RecentDeals: recentDeals(deals, c.recentLimit),
	}
	for i, name := range monthNames {
		summary.MonthlyData[i].Month = name
	}

	for _, d := range deals {
		summary.TotalGrossCommission += d.GrossCommission
		summary.TotalNetCommission += d.TakeHome
		if d.CloseDate != nil {
			m := int(d.CloseDate.Month()) - 1
			summary.MonthlyData[m].Gross += d.GrossCommission
			summary.MonthlyData[m].Net += d.TakeHome
		}
	}

	if len(deals) > 0 {
		summary.AverageCommission = summary.TotalGrossCommission / float64(len(deals))
	} else if c.demo {
		summary.MonthlyData = demoMonthlyData()
		summary.IsDemo = true
	}

	return summary
}

// DeriveDeals converts the qualifying opportunities into commission deals,
// keeping input order
func DeriveDeals(opps []domain.Opportunity) []domain.CommissionDeal {
	deals := make([]domain.CommissionDeal, 0, len(opps))
	for _, opp := range opps {
		if !Qualifies(opp.Status) {
			continue
		}
		deals = append(deals, DeriveDeal(opp))
	}
	return deals
}

// Qualifies reports whether an opportunity status produces a commission deal
func Qualifies(status string) bool {
	return status == StatusClearToClose || status == StatusComplianceCompleted
}

// DeriveDeal computes the commission for a single opportunity.
// gross = loan * bps / 10000 and take-home = gross * split / 100.
func DeriveDeal(opp domain.Opportunity) domain.CommissionDeal {
	loan := positiveOr(opp.LoanAmount, opp.Value)
	bps := positiveOr(opp.BPS, DefaultBPS)
	split := positiveOr(opp.SplitPercent, DefaultSplitPercent)
	gross := loan * bps / 10000

	closeDate := opp.CloseDate
	if closeDate == nil {
		closeDate = opp.ExpectedCloseDate
	}
	if closeDate != nil {
		d := *closeDate
		closeDate = &d
	}

	return domain.CommissionDeal{
		ID:              "deal-" + opp.ID.String(),
		OpportunityID:   opp.ID,
		ClientName:      opp.Name,
		LoanAmount:      loan,
		BPS:             bps,
		SplitPercent:    split,
		GrossCommission: gross,
		TakeHome:        gross * split / 100,
		CloseDate:       closeDate,
		Status:          opp.Status,
		Stage:           opp.Stage,
		ExternalLoanID:  opp.ExternalReference,
	}
}

func positiveOr(v *float64, fallback float64) float64 {
	if v == nil || *v <= 0 {
		return fallback
	}
	return *v
}

// recentDeals returns up to limit deals, latest close date first. Deals
// without a close date sort last, and ties keep derivation order.
func recentDeals(deals []domain.CommissionDeal, limit int) []domain.CommissionDeal {
	sorted := make([]domain.CommissionDeal, len(deals))
	copy(sorted, deals)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].CloseDate, sorted[j].CloseDate
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
