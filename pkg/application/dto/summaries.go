package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/requisition/pkg/domain/entities"
)

// CartLineSummary is one cart line prepared for display
type CartLineSummary struct {
	VariantID entities.VariantID `json:"variant_id"`
	Code      string             `json:"code,omitempty"`
	Name      string             `json:"name"`
	Unit      string             `json:"unit,omitempty"`
	Quantity  entities.Quantity  `json:"quantity"`
}

// CartSummary is the cart prepared for display
type CartSummary struct {
	Lines     []CartLineSummary `json:"lines"`
	LineCount int               `json:"line_count"`
	ItemCount entities.Quantity `json:"item_count"`
}

// NewCartSummary summarizes cart
func NewCartSummary(cart entities.Cart) CartSummary {
	summary := CartSummary{
		Lines:     make([]CartLineSummary, 0, len(cart)),
		LineCount: len(cart),
		ItemCount: cart.ItemCount(),
	}
	for _, line := range cart {
		summary.Lines = append(summary.Lines, CartLineSummary{
			VariantID: line.Variant.ID,
			Code:      line.Variant.FullCode,
			Name:      line.Variant.DisplayName(),
			Unit:      line.Variant.UnitOfMeasure,
			Quantity:  line.Quantity,
		})
	}
	return summary
}

// RequestLineSummary is one requested item with its fulfilment so far
type RequestLineSummary struct {
	VariantID          entities.VariantID `json:"variant_id"`
	Name               string             `json:"name"`
	Unit               string             `json:"unit,omitempty"`
	Requested          entities.Quantity  `json:"requested"`
	Approved           *entities.Quantity `json:"approved,omitempty"`
	Issued             entities.Quantity  `json:"issued"`
	FulfillmentPercent decimal.Decimal    `json:"fulfillment_percent"`
}

// ApprovalSummary is one decided approval stage
type ApprovalSummary struct {
	Stage           string     `json:"stage"`
	Approver        string     `json:"approver,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// RequestSummary is a request record prepared for display
type RequestSummary struct {
	ID                 entities.RequestID   `json:"id"`
	Number             string               `json:"number"`
	Status             string               `json:"status"`
	StatusLabel        string               `json:"status_label"`
	CreatedAt          time.Time            `json:"created_at"`
	SubmittedAt        *time.Time           `json:"submitted_at,omitempty"`
	ReceivedAt         *time.Time           `json:"received_at,omitempty"`
	SPMBNumber         string               `json:"spmb_number,omitempty"`
	Lines              []RequestLineSummary `json:"lines"`
	Approvals          []ApprovalSummary    `json:"approvals"`
	TotalRequested     entities.Quantity    `json:"total_requested"`
	TotalIssued        entities.Quantity    `json:"total_issued"`
	FulfillmentPercent decimal.Decimal      `json:"fulfillment_percent"`
	Actions            []string             `json:"actions"`
}

// NewRequestSummary summarizes record, computing fulfilment percentages as
// issued/requested rounded to one decimal place
func NewRequestSummary(record entities.RequestRecord) RequestSummary {
	summary := RequestSummary{
		ID:          record.ID,
		Number:      record.Number(),
		Status:      string(record.Status),
		StatusLabel: record.StatusLabel(),
		CreatedAt:   record.CreatedAt,
		SubmittedAt: record.SubmittedAt,
		ReceivedAt:  record.ReceivedAt,
		SPMBNumber:  record.SPMBNumber,
		Lines:       make([]RequestLineSummary, 0, len(record.Items)),
		Approvals:   make([]ApprovalSummary, 0, len(record.Approvals)),
		Actions:     make([]string, 0, 1),
	}

	for _, item := range record.Items {
		summary.Lines = append(summary.Lines, RequestLineSummary{
			VariantID:          item.Variant.ID,
			Name:               item.Variant.DisplayName(),
			Unit:               item.Variant.UnitOfMeasure,
			Requested:          item.QuantityRequested,
			Approved:           item.QuantityApproved,
			Issued:             item.QuantityIssued,
			FulfillmentPercent: FulfillmentPercent(item.QuantityIssued, item.QuantityRequested),
		})
		summary.TotalRequested += item.QuantityRequested
		summary.TotalIssued += item.QuantityIssued
	}
	summary.FulfillmentPercent = FulfillmentPercent(summary.TotalIssued, summary.TotalRequested)

	for _, approval := range record.Approvals {
		a := ApprovalSummary{
			Stage:           string(approval.Stage),
			DecidedAt:       approval.DecidedAt,
			RejectionReason: approval.RejectionReason,
		}
		if approval.Approver != nil {
			a.Approver = approval.Approver.Email
		}
		summary.Approvals = append(summary.Approvals, a)
	}

	for _, action := range record.Actions() {
		summary.Actions = append(summary.Actions, string(action))
	}
	return summary
}

// NewRequestSummaries summarizes records in order
func NewRequestSummaries(records []entities.RequestRecord) []RequestSummary {
	summaries := make([]RequestSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, NewRequestSummary(record))
	}
	return summaries
}

// FulfillmentPercent returns issued as a percentage of requested, rounded to
// one decimal place. Zero requested yields zero.
func FulfillmentPercent(issued, requested entities.Quantity) decimal.Decimal {
	if requested <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(issued)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(requested))).
		Round(1)
}

// StockSummary is one stock level prepared for display
type StockSummary struct {
	VariantID entities.VariantID `json:"variant_id"`
	Code      string             `json:"code,omitempty"`
	Type      string             `json:"type,omitempty"`
	Name      string             `json:"name"`
	Unit      string             `json:"unit,omitempty"`
	Available entities.Quantity  `json:"available"`
	Status    string             `json:"status"`
}

// NewStockSummaries summarizes levels in order
func NewStockSummaries(levels []entities.StockLevel) []StockSummary {
	summaries := make([]StockSummary, 0, len(levels))
	for _, level := range levels {
		status := "available"
		switch {
		case !level.InStock():
			status = "out_of_stock"
		case level.IsLowStock:
			status = "low_stock"
		}
		summaries = append(summaries, StockSummary{
			VariantID: level.Variant.ID,
			Code:      level.Variant.FullCode,
			Type:      level.Variant.TypeName,
			Name:      level.Variant.DisplayName(),
			Unit:      level.Variant.UnitOfMeasure,
			Available: level.TotalQuantity,
			Status:    status,
		})
	}
	return summaries
}
