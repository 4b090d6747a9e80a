package backend

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
)

// Wire shapes of the backend's JSON. Nullable fields are pointers so that
// null and absent decode the same way.

type wireVariant struct {
	ID            int64   `json:"id"`
	FullCode      *string `json:"full_code"`
	SpecificCode  *string `json:"specific_code"`
	TypeName      *string `json:"type_name"`
	Name          *string `json:"name"`
	VariantName   *string `json:"variant_name"`
	Description   *string `json:"description"`
	UnitOfMeasure *string `json:"unit_of_measure"`
}

func (w *wireVariant) toEntity() entities.Variant {
	return entities.Variant{
		ID:            entities.VariantID(w.ID),
		FullCode:      str(w.FullCode),
		SpecificCode:  str(w.SpecificCode),
		TypeName:      str(w.TypeName),
		Name:          str(w.Name),
		VariantName:   str(w.VariantName),
		Description:   str(w.Description),
		UnitOfMeasure: str(w.UnitOfMeasure),
	}
}

type wireProfile struct {
	ID                    int64   `json:"id"`
	Email                 string  `json:"email"`
	FirstName             *string `json:"first_name"`
	LastName              *string `json:"last_name"`
	FullName              *string `json:"full_name"`
	Role                  *string `json:"role"`
	RoleDisplay           *string `json:"role_display"`
	DepartmentCode        *string `json:"department_code"`
	PasswordResetRequired bool    `json:"password_reset_required"`
	IsActive              *bool   `json:"is_active"`
}

// validate rejects a profile that does not identify a user, such as a
// null or empty object
func (w *wireProfile) validate(what string) error {
	if w == nil || w.ID <= 0 || strings.TrimSpace(w.Email) == "" {
		return &repositories.BackendError{Kind: repositories.KindValidation, Message: what + " response does not identify a user"}
	}
	return nil
}

func (w *wireProfile) toEntity() entities.UserProfile {
	active := true
	if w.IsActive != nil {
		active = *w.IsActive
	}
	return entities.UserProfile{
		ID:                    w.ID,
		Email:                 w.Email,
		FirstName:             str(w.FirstName),
		LastName:              str(w.LastName),
		FullName:              str(w.FullName),
		Role:                  entities.Role(str(w.Role)),
		RoleDisplay:           str(w.RoleDisplay),
		DepartmentCode:        str(w.DepartmentCode),
		PasswordResetRequired: w.PasswordResetRequired,
		IsActive:              active,
	}
}

type wireBasicUser struct {
	ID             int64   `json:"id"`
	Email          *string `json:"email"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	DepartmentCode *string `json:"department_code"`
}

// decodeUserRef accepts a nested user object or a bare primary key
func decodeUserRef(raw json.RawMessage) *entities.BasicUser {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return &entities.BasicUser{ID: id}
	}
	var w wireBasicUser
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil
	}
	return &entities.BasicUser{
		ID:             w.ID,
		Email:          str(w.Email),
		FirstName:      str(w.FirstName),
		LastName:       str(w.LastName),
		DepartmentCode: str(w.DepartmentCode),
	}
}

type wireLogin struct {
	Token string       `json:"token"`
	User  *wireProfile `json:"user"`
}

type wireStockLevel struct {
	Variant           *wireVariant `json:"variant"`
	TotalQuantity     int64        `json:"total_quantity"`
	LowStockThreshold *int64       `json:"low_stock_threshold"`
	IsLowStock        bool         `json:"is_low_stock"`
	IsOutOfStock      bool         `json:"is_out_of_stock"`
}

type wireRequestItem struct {
	ID                   int64        `json:"id"`
	Variant              *wireVariant `json:"variant"`
	QuantityRequested    int64        `json:"quantity_requested"`
	QuantityApprovedSPV2 *int64       `json:"quantity_approved_spv2"`
	QuantityIssued       *int64       `json:"quantity_issued"`
}

type wireRequest struct {
	ID            int64             `json:"id"`
	RequestNumber *string           `json:"request_number"`
	Requester     json.RawMessage   `json:"requester"`
	Status        string            `json:"status"`
	StatusDisplay *string           `json:"status_display"`
	CreatedAt     time.Time         `json:"created_at"`
	SubmittedAt   *time.Time        `json:"submitted_at"`
	ReceivedAt    *time.Time        `json:"received_at"`
	SPMBNumber    *string           `json:"spmb_number"`
	Items         []wireRequestItem `json:"items"`

	Supervisor1Approver        json.RawMessage `json:"supervisor1_approver"`
	Supervisor1DecisionAt      *time.Time      `json:"supervisor1_decision_at"`
	Supervisor1RejectionReason *string         `json:"supervisor1_rejection_reason"`
	Supervisor2Approver        json.RawMessage `json:"supervisor2_approver"`
	Supervisor2DecisionAt      *time.Time      `json:"supervisor2_decision_at"`
	Supervisor2RejectionReason *string         `json:"supervisor2_rejection_reason"`
	OperatorProcessor          json.RawMessage `json:"operator_processor"`
	OperatorProcessedAt        *time.Time      `json:"operator_processed_at"`
	OperatorRejectionReason    *string         `json:"operator_rejection_reason"`
}

func (w *wireRequest) toEntity() entities.RequestRecord {
	record := entities.RequestRecord{
		ID:            entities.RequestID(w.ID),
		RequestNumber: w.RequestNumber,
		Requester:     decodeUserRef(w.Requester),
		Status:        entities.RequestStatus(w.Status),
		StatusDisplay: str(w.StatusDisplay),
		CreatedAt:     w.CreatedAt,
		SubmittedAt:   w.SubmittedAt,
		ReceivedAt:    w.ReceivedAt,
		SPMBNumber:    str(w.SPMBNumber),
		Items:         make([]entities.RequestItem, 0, len(w.Items)),
		Approvals:     make([]entities.Approval, 0, 3),
	}

	for _, item := range w.Items {
		if item.Variant == nil {
			continue
		}
		converted := entities.RequestItem{
			ID:                item.ID,
			Variant:           item.Variant.toEntity(),
			QuantityRequested: entities.Quantity(item.QuantityRequested),
		}
		if item.QuantityApprovedSPV2 != nil {
			approved := entities.Quantity(*item.QuantityApprovedSPV2)
			converted.QuantityApproved = &approved
		}
		if item.QuantityIssued != nil {
			converted.QuantityIssued = entities.Quantity(*item.QuantityIssued)
		}
		record.Items = append(record.Items, converted)
	}

	stages := []struct {
		stage    entities.ApprovalStage
		approver json.RawMessage
		at       *time.Time
		reason   *string
	}{
		{entities.StageRequesterSuperior, w.Supervisor1Approver, w.Supervisor1DecisionAt, w.Supervisor1RejectionReason},
		{entities.StageOperatorSuperior, w.Supervisor2Approver, w.Supervisor2DecisionAt, w.Supervisor2RejectionReason},
		{entities.StageOperator, w.OperatorProcessor, w.OperatorProcessedAt, w.OperatorRejectionReason},
	}
	for _, s := range stages {
		approver := decodeUserRef(s.approver)
		reason := str(s.reason)
		if approver == nil && reason == "" {
			continue
		}
		record.Approvals = append(record.Approvals, entities.Approval{
			Stage:           s.stage,
			Approver:        approver,
			DecidedAt:       s.at,
			RejectionReason: reason,
		})
	}
	return record
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
