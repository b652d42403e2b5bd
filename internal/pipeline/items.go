package pipeline

import (
	"sort"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
)

const (
	unknownCustomerName = "Unknown"
	untitledDeal        = "Untitled Deal"
	openDealStatus      = "open"

	quoteProbability       = 50
	openInvoiceProbability = 75
	paidInvoiceProbability = 100
)

// Sources are the independently fetched collections a pipeline view is built from.
// Any of them may be nil when its fetch failed.
type Sources struct {
	Deals     []domain.Deal
	Quotes    []domain.Quote
	Invoices  []domain.Invoice
	Customers []domain.Customer
}

// BuildItems projects deals, open quotes and open or paid invoices into one
// list of pipeline items, newest first. Inputs are not modified.
func BuildItems(stages *StageSet, src Sources) []domain.PipelineItem {
	customers := make(map[uuid.UUID]*domain.Customer, len(src.Customers))
	for i := range src.Customers {
		customers[src.Customers[i].ID] = &src.Customers[i]
	}

	items := make([]domain.PipelineItem, 0, len(src.Deals)+len(src.Quotes)+len(src.Invoices))

	for _, d := range src.Deals {
		customerID := d.CustomerID
		item := domain.PipelineItem{
			ID:            d.ID,
			Kind:          domain.PipelineItemDeal,
			DisplayNumber: d.Title,
			CustomerID:    &customerID,
			Amount:        d.Value,
			Status:        d.FinalStatus,
			CreatedAt:     d.CreatedAt,
			StageKey:      d.Stage,
			Probability:   d.Probability,
		}
		if item.DisplayNumber == "" {
			item.DisplayNumber = untitledDeal
		}
		if item.Status == "" {
			item.Status = openDealStatus
		}
		if _, ok := stages.Stage(d.Stage); !ok {
			fallback := fallbackStage(stages)
			item.StageKey = fallback.Key
			item.Probability = fallback.DefaultProbability
		}
		resolveCustomer(&item, customers)
		items = append(items, item)
	}

	for _, q := range src.Quotes {
		switch q.Status {
		case domain.QuoteStatusSent, domain.QuoteStatusViewed, domain.QuoteStatusDraft:
		default:
			continue
		}
		item := domain.PipelineItem{
			ID:            q.ID,
			Kind:          domain.PipelineItemQuote,
			DisplayNumber: q.QuoteNumber,
			CustomerID:    copyID(q.CustomerID),
			Amount:        q.TotalAmount,
			Status:        string(q.Status),
			CreatedAt:     q.CreatedAt,
			StageKey:      domain.DealStageProposal,
			Probability:   quoteProbability,
		}
		resolveCustomer(&item, customers)
		items = append(items, item)
	}

	for _, inv := range src.Invoices {
		item := domain.PipelineItem{
			ID:            inv.ID,
			Kind:          domain.PipelineItemInvoice,
			DisplayNumber: inv.InvoiceNumber,
			CustomerID:    copyID(inv.CustomerID),
			Amount:        inv.TotalAmount,
			Status:        string(inv.Status),
			CreatedAt:     inv.CreatedAt,
		}
		switch inv.Status {
		case domain.InvoiceStatusSent, domain.InvoiceStatusViewed, domain.InvoiceStatusDraft:
			item.StageKey = domain.DealStageNegotiation
			item.Probability = openInvoiceProbability
		case domain.InvoiceStatusPaid:
			item.StageKey = domain.DealStageWon
			item.Probability = paidInvoiceProbability
		default:
			continue
		}
		resolveCustomer(&item, customers)
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	return items
}

// fallbackStage is where deals with an empty or unknown stage are shown
func fallbackStage(stages *StageSet) domain.PipelineStage {
	if st, ok := stages.Stage(domain.DealStageLead); ok {
		return st
	}
	return stages.FirstOpen()
}

func resolveCustomer(item *domain.PipelineItem, customers map[uuid.UUID]*domain.Customer) {
	item.CustomerName = unknownCustomerName
	item.CustomerEmail = ""
	if item.CustomerID == nil {
		return
	}
	if c, ok := customers[*item.CustomerID]; ok {
		item.CustomerName = c.Name
		item.CustomerEmail = c.Email
	}
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
