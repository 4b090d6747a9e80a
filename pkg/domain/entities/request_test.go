package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedActions(t *testing.T) {
	tests := []struct {
		status   RequestStatus
		expected []Action
	}{
		{StatusDraft, []Action{ActionSubmitDraft}},
		{StatusCompleted, []Action{ActionConfirmReceipt}},
		{StatusSubmitted, nil},
		{StatusApprovedSPV1, nil},
		{StatusApprovedSPV2, nil},
		{StatusProcessing, nil},
		{StatusRejectedSPV1, nil},
		{StatusRejectedSPV2, nil},
		{StatusRejectedOPR, nil},
		{StatusReceived, nil},
		{StatusCancelled, nil},
		{RequestStatus("ARCHIVED"), nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, AllowedActions(tt.status))
		})
	}
}

func TestRequestStatus_Allows(t *testing.T) {
	tests := []struct {
		status   RequestStatus
		action   Action
		expected bool
	}{
		{StatusDraft, ActionSubmitDraft, true},
		{StatusDraft, ActionConfirmReceipt, false},
		{StatusCompleted, ActionConfirmReceipt, true},
		{StatusCompleted, ActionSubmitDraft, false},
		{StatusSubmitted, ActionSubmitDraft, false},
	}

	for _, tt := range tests {
		if got := tt.status.Allows(tt.action); got != tt.expected {
			t.Errorf("%s.Allows(%s) = %v, expected %v", tt.status, tt.action, got, tt.expected)
		}
	}
}

func TestRequestStatus_Final(t *testing.T) {
	if !StatusRejectedSPV2.Rejected() {
		t.Error("Expected REJECTED_SPV2 to be a rejection")
	}
	if StatusDraft.Rejected() {
		t.Error("Expected DRAFT not to be a rejection")
	}
	for _, status := range []RequestStatus{StatusRejectedOPR, StatusReceived} {
		if !status.Final() {
			t.Errorf("Expected %s to be final", status)
		}
	}
	if StatusCompleted.Final() {
		t.Error("Expected COMPLETED not to be final")
	}
}

func TestRequestRecord_Labels(t *testing.T) {
	number := "REQ/2025/0007"
	draft := RequestRecord{ID: 1, Status: StatusDraft}
	submitted := RequestRecord{ID: 2, RequestNumber: &number, Status: StatusSubmitted, StatusDisplay: "Diajukan"}

	assert.Equal(t, "(Draft)", draft.Number())
	assert.Equal(t, "DRAFT", draft.StatusLabel())
	assert.Equal(t, []Action{ActionSubmitDraft}, draft.Actions())
	assert.Equal(t, number, submitted.Number())
	assert.Equal(t, "Diajukan", submitted.StatusLabel())
	assert.Empty(t, submitted.Actions())
}
