package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/requisition/pkg/domain/entities"
	testhelpers "github.com/vsinha/requisition/pkg/infrastructure/testing"
)

func TestFulfillmentPercent(t *testing.T) {
	tests := []struct {
		issued, requested entities.Quantity
		expected          string
	}{
		{0, 0, "0"},
		{0, 5, "0"},
		{2, 3, "66.7"},
		{1, 3, "33.3"},
		{5, 5, "100"},
		{7, 4, "175"},
	}

	for _, tt := range tests {
		got := FulfillmentPercent(tt.issued, tt.requested)
		assert.Equal(t, tt.expected, got.String(), "%d/%d", tt.issued, tt.requested)
	}
}

func TestNewRequestSummary(t *testing.T) {
	approved := entities.Quantity(2)
	record := testhelpers.SampleRecord(12, entities.StatusCompleted, 1, 2)
	record.Items[0].QuantityIssued = 1
	record.Items[1].QuantityApproved = &approved
	record.Items[1].QuantityIssued = 2
	supervisor := testhelpers.SampleSupervisor()
	record.Approvals = []entities.Approval{{Stage: entities.StageRequesterSuperior, Approver: &supervisor}}

	summary := NewRequestSummary(record)

	assert.Equal(t, "REQ/KEU/2025/0012", summary.Number)
	assert.Equal(t, entities.Quantity(3), summary.TotalRequested)
	assert.Equal(t, entities.Quantity(3), summary.TotalIssued)
	assert.Equal(t, "100", summary.FulfillmentPercent.String())
	assert.Equal(t, "100", summary.Lines[0].FulfillmentPercent.String())
	assert.Equal(t, []string{"receive"}, summary.Actions)
	require.Len(t, summary.Approvals, 1)
	assert.Equal(t, "atasan@example.org", summary.Approvals[0].Approver)

	data, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fulfillment_percent":"100"`)
}

func TestNewCartSummary(t *testing.T) {
	cart := entities.Cart{}.
		AddItem(testhelpers.CatalogVariant(1), 2).
		AddItem(testhelpers.CatalogVariant(4), 3)

	summary := NewCartSummary(cart)

	assert.Equal(t, 2, summary.LineCount)
	assert.Equal(t, entities.Quantity(5), summary.ItemCount)
	assert.Equal(t, "A4 80gsm", summary.Lines[0].Name)
	assert.Equal(t, "rim", summary.Lines[0].Unit)
}

func TestNewStockSummaries(t *testing.T) {
	summaries := NewStockSummaries(testhelpers.BuildStationeryCatalog())

	require.Len(t, summaries, 4)
	assert.Equal(t, "available", summaries[0].Status)
	assert.Equal(t, "low_stock", summaries[1].Status)
	assert.Equal(t, "out_of_stock", summaries[2].Status)
}
