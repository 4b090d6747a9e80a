package testing

import (
	"context"
	"sync"

	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
)

// StubBackend is an InventoryBackend whose behaviour is set per method by
// assigning the function fields. Unset methods fail with a transport error.
// Every call is counted, including calls to unset methods.
type StubBackend struct {
	LoginFunc          func(ctx context.Context, email, password string) (*repositories.LoginResult, error)
	ProfileFunc        func(ctx context.Context, token string) (*entities.UserProfile, error)
	LogoutFunc         func(ctx context.Context, token string) error
	StockLevelsFunc    func(ctx context.Context, token string) ([]entities.StockLevel, error)
	ListRequestsFunc   func(ctx context.Context, token string) ([]entities.RequestRecord, error)
	CreateRequestFunc  func(ctx context.Context, token string, items []entities.DraftItem) (*entities.RequestRecord, error)
	GetRequestFunc     func(ctx context.Context, token string, id entities.RequestID) (*entities.RequestRecord, error)
	SubmitRequestFunc  func(ctx context.Context, token string, id entities.RequestID) (*entities.ActionResult, error)
	ReceiveRequestFunc func(ctx context.Context, token string, id entities.RequestID) (*entities.ActionResult, error)

	mu    sync.Mutex
	calls map[string]int
}

// NewStubBackend creates a stub with no methods set
func NewStubBackend() *StubBackend {
	return &StubBackend{calls: make(map[string]int)}
}

var _ repositories.InventoryBackend = (*StubBackend)(nil)

var errNotStubbed = &repositories.BackendError{Kind: repositories.KindTransport, Message: "backend method not stubbed"}

func (b *StubBackend) record(method string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.calls == nil {
		b.calls = make(map[string]int)
	}
	b.calls[method]++
}

// Calls returns how many times method was invoked
func (b *StubBackend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

// TotalCalls returns the number of invocations across all methods
func (b *StubBackend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

func (b *StubBackend) Login(ctx context.Context, email, password string) (*repositories.LoginResult, error) {
	b.record("Login")
	if b.LoginFunc == nil {
		return nil, errNotStubbed
	}
	return b.LoginFunc(ctx, email, password)
}

func (b *StubBackend) Profile(ctx context.Context, token string) (*entities.UserProfile, error) {
	b.record("Profile")
	if b.ProfileFunc == nil {
		return nil, errNotStubbed
	}
	return b.ProfileFunc(ctx, token)
}

func (b *StubBackend) Logout(ctx context.Context, token string) error {
	b.record("Logout")
	if b.LogoutFunc == nil {
		return errNotStubbed
	}
	return b.LogoutFunc(ctx, token)
}

func (b *StubBackend) StockLevels(ctx context.Context, token string) ([]entities.StockLevel, error) {
	b.record("StockLevels")
	if b.StockLevelsFunc == nil {
		return nil, errNotStubbed
	}
	return b.StockLevelsFunc(ctx, token)
}

func (b *StubBackend) ListRequests(ctx context.Context, token string) ([]entities.RequestRecord, error) {
	b.record("ListRequests")
	if b.ListRequestsFunc == nil {
		return nil, errNotStubbed
	}
	return b.ListRequestsFunc(ctx, token)
}

func (b *StubBackend) CreateRequest(ctx context.Context, token string, items []entities.DraftItem) (*entities.RequestRecord, error) {
	b.record("CreateRequest")
	if b.CreateRequestFunc == nil {
		return nil, errNotStubbed
	}
	return b.CreateRequestFunc(ctx, token, items)
}

func (b *StubBackend) GetRequest(ctx context.Context, token string, id entities.RequestID) (*entities.RequestRecord, error) {
	b.record("GetRequest")
	if b.GetRequestFunc == nil {
		return nil, errNotStubbed
	}
	return b.GetRequestFunc(ctx, token, id)
}

func (b *StubBackend) SubmitRequest(ctx context.Context, token string, id entities.RequestID) (*entities.ActionResult, error) {
	b.record("SubmitRequest")
	if b.SubmitRequestFunc == nil {
		return nil, errNotStubbed
	}
	return b.SubmitRequestFunc(ctx, token, id)
}

func (b *StubBackend) ReceiveRequest(ctx context.Context, token string, id entities.RequestID) (*entities.ActionResult, error) {
	b.record("ReceiveRequest")
	if b.ReceiveRequestFunc == nil {
		return nil, errNotStubbed
	}
	return b.ReceiveRequestFunc(ctx, token, id)
}

// AcceptToken configures Profile to accept only token, returning user
func (b *StubBackend) AcceptToken(token string, user entities.UserProfile) {
	b.ProfileFunc = func(ctx context.Context, got string) (*entities.UserProfile, error) {
		if got != token {
			return nil, &repositories.BackendError{Kind: repositories.KindAuth, Status: 401, Message: "Invalid token."}
		}
		u := user
		return &u, nil
	}
}
