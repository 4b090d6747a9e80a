package repositories

import (
	"context"

	"github.com/vsinha/requisition/pkg/domain/entities"
)

// LoginResult is the payload returned by a successful credential exchange
type LoginResult struct {
	Token string
	User  entities.UserProfile
}

// InventoryBackend is the remote service that owns requests, approvals and
// stock. Every method except Login expects the session token.
type InventoryBackend interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Profile(ctx context.Context, token string) (*entities.UserProfile, error)
	Logout(ctx context.Context, token string) error

	StockLevels(ctx context.Context, token string) ([]entities.StockLevel, error)

	ListRequests(ctx context.Context, token string) ([]entities.RequestRecord, error)
	CreateRequest(ctx context.Context, token string, items []entities.DraftItem) (*entities.RequestRecord, error)
	GetRequest(ctx context.Context, token string, id entities.RequestID) (*entities.RequestRecord, error)
	SubmitRequest(ctx context.Context, token string, id entities.RequestID) (*entities.ActionResult, error)
	ReceiveRequest(ctx context.Context, token string, id entities.RequestID) (*entities.ActionResult, error)
}
