package entities

import "time"

// RequestID identifies a request record at the backend
type RequestID int64

// RequestStatus is the server-owned workflow status of a request
type RequestStatus string

const (
	StatusDraft        RequestStatus = "DRAFT"
	StatusSubmitted    RequestStatus = "SUBMITTED"
	StatusRejectedSPV1 RequestStatus = "REJECTED_SPV1"
	StatusApprovedSPV1 RequestStatus = "APPROVED_SPV1"
	StatusRejectedSPV2 RequestStatus = "REJECTED_SPV2"
	StatusApprovedSPV2 RequestStatus = "APPROVED_SPV2"
	StatusProcessing   RequestStatus = "PROCESSING"
	StatusRejectedOPR  RequestStatus = "REJECTED_OPR"
	StatusCompleted    RequestStatus = "COMPLETED"
	StatusReceived     RequestStatus = "RECEIVED"
	StatusCancelled    RequestStatus = "CANCELLED"
)

// Action is a client-initiated workflow transition
type Action string

const (
	ActionSubmitDraft    Action = "submit"
	ActionConfirmReceipt Action = "receive"
)

// AllowedActions returns the client actions legal for status. This is the
// only workflow rule owned by the client; every other transition is observed
// by re-fetching the record.
func AllowedActions(status RequestStatus) []Action {
	switch status {
	case StatusDraft:
		return []Action{ActionSubmitDraft}
	case StatusCompleted:
		return []Action{ActionConfirmReceipt}
	default:
		return nil
	}
}

// Allows reports whether action is legal for the status
func (s RequestStatus) Allows(action Action) bool {
	for _, a := range AllowedActions(s) {
		if a == action {
			return true
		}
	}
	return false
}

// Rejected reports whether a reviewer declined the request
func (s RequestStatus) Rejected() bool {
	switch s {
	case StatusRejectedSPV1, StatusRejectedSPV2, StatusRejectedOPR:
		return true
	default:
		return false
	}
}

// Final reports whether no further transitions are expected
func (s RequestStatus) Final() bool {
	return s.Rejected() || s == StatusReceived || s == StatusCancelled
}

// ApprovalStage names a reviewer step in the request workflow
type ApprovalStage string

const (
	StageRequesterSuperior ApprovalStage = "SPV1"
	StageOperatorSuperior  ApprovalStage = "SPV2"
	StageOperator          ApprovalStage = "OPERATOR"
)

// Approval records one reviewer decision on a request
type Approval struct {
	Stage           ApprovalStage `json:"stage"`
	Approver        *BasicUser    `json:"approver,omitempty"`
	DecidedAt       *time.Time    `json:"decided_at,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
}

// RequestItem is the read-only projection of one requested line
type RequestItem struct {
	ID                int64     `json:"id"`
	Variant           Variant   `json:"variant"`
	QuantityRequested Quantity  `json:"quantity_requested"`
	QuantityApproved  *Quantity `json:"quantity_approved,omitempty"`
	QuantityIssued    Quantity  `json:"quantity_issued"`
}

// RequestRecord is the client's read-only view of a server-owned request
type RequestRecord struct {
	ID            RequestID     `json:"id"`
	RequestNumber *string       `json:"request_number,omitempty"`
	Requester     *BasicUser    `json:"requester,omitempty"`
	Status        RequestStatus `json:"status"`
	StatusDisplay string        `json:"status_display,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	SubmittedAt   *time.Time    `json:"submitted_at,omitempty"`
	ReceivedAt    *time.Time    `json:"received_at,omitempty"`
	SPMBNumber    string        `json:"spmb_number,omitempty"`
	Items         []RequestItem `json:"items"`
	Approvals     []Approval    `json:"approvals"`
}

// Number returns the request number, or a draft placeholder
func (r RequestRecord) Number() string {
	if r.RequestNumber != nil && *r.RequestNumber != "" {
		return *r.RequestNumber
	}
	return "(Draft)"
}

// StatusLabel prefers the backend's display label
func (r RequestRecord) StatusLabel() string {
	if r.StatusDisplay != "" {
		return r.StatusDisplay
	}
	return string(r.Status)
}

// Actions returns the client actions legal for the record's current status
func (r RequestRecord) Actions() []Action {
	return AllowedActions(r.Status)
}

// ActionResult is the backend reply to a workflow action: either an updated
// record or a bare status message
type ActionResult struct {
	Record  *RequestRecord
	Message string
}
