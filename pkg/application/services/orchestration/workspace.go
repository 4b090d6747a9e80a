package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/requisition/pkg/application/services/cart"
	"github.com/vsinha/requisition/pkg/application/services/catalog"
	"github.com/vsinha/requisition/pkg/application/services/lifecycle"
	"github.com/vsinha/requisition/pkg/application/services/session"
	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/domain/services"
	"github.com/vsinha/requisition/pkg/infrastructure/events"
)

// ErrNotAuthenticated rejects a protected operation without a session
var ErrNotAuthenticated = errors.New("not logged in")

// Dependencies are the adapters a workspace is built on
type Dependencies struct {
	Backend repositories.InventoryBackend
	Store   repositories.KeyValueStore
	Logger  *logrus.Logger
}

// Workspace composes the session, cart, request view and catalog. Every
// operation other than login and logout requires a resolved, authenticated
// session.
type Workspace struct {
	Session  *session.Manager
	Cart     *cart.Engine
	Requests *lifecycle.View
	Catalog  *catalog.Service

	events *events.InMemoryEventStore
	log    *logrus.Entry
}

// NewWorkspace wires the components together
func NewWorkspace(deps Dependencies) (*Workspace, error) {
	if deps.Backend == nil || deps.Store == nil || deps.Logger == nil {
		return nil, fmt.Errorf("workspace requires a backend, a store and a logger")
	}

	codec, err := services.NewCartSnapshotCodec()
	if err != nil {
		return nil, err
	}

	component := func(name string) *logrus.Entry {
		return deps.Logger.WithField("component", name)
	}

	eventStore := events.NewInMemoryEventStore(component("events"))
	journal := events.NewCartJournal(eventStore)

	sessionManager := session.NewManager(deps.Backend, deps.Store, component("session"))
	cartEngine := cart.NewEngine(deps.Store, codec, journal, component("cart"))

	w := &Workspace{
		Session:  sessionManager,
		Cart:     cartEngine,
		Requests: lifecycle.NewView(deps.Backend, sessionManager, eventStore, component("lifecycle")),
		Catalog:  catalog.NewService(deps.Backend, sessionManager, cartEngine, component("catalog")),
		events:   eventStore,
		log:      component("workspace"),
	}

	eventTypes := append(append([]string{}, events.CartEventTypes...), events.RequestEventTypes...)
	if err := eventStore.Subscribe(eventTypes, events.NewLogHandler(component("journal"), eventTypes...)); err != nil {
		return nil, fmt.Errorf("failed to subscribe journal logger: %w", err)
	}

	return w, nil
}

// Start hydrates the cart and then verifies the stored session. A cart load
// failure is logged and does not stop startup.
func (w *Workspace) Start(ctx context.Context) entities.Session {
	if err := w.Cart.Hydrate(ctx); err != nil {
		w.log.WithError(err).Warn("starting with an empty cart")
	}
	return w.Session.VerifyStoredSession(ctx)
}

// guard defers until verification resolves and then requires a session
func (w *Workspace) guard(ctx context.Context) error {
	s, err := w.Session.AwaitResolved(ctx)
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// Login exchanges credentials for a session
func (w *Workspace) Login(ctx context.Context, email, password string) (*entities.UserProfile, error) {
	return w.Session.Authenticate(ctx, email, password)
}

// Logout ends the session. Local state is always cleared.
func (w *Workspace) Logout(ctx context.Context) error {
	return w.Session.Logout(ctx)
}

// CurrentUser returns the verified user
func (w *Workspace) CurrentUser(ctx context.Context) (*entities.UserProfile, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}
	return w.Session.User(), nil
}

// ListStock returns current stock levels
func (w *Workspace) ListStock(ctx context.Context) ([]entities.StockLevel, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}
	return w.Catalog.ListStock(ctx)
}

// CartLines returns the working cart
func (w *Workspace) CartLines(ctx context.Context) (entities.Cart, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}
	return w.Cart.Lines(), nil
}

// AddToCart resolves variantID against stock and adds quantity of it
func (w *Workspace) AddToCart(ctx context.Context, variantID entities.VariantID, quantity entities.Quantity) (entities.Cart, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}
	level, err := w.Catalog.FindVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return w.Catalog.AddToCart(ctx, level, quantity)
}

// ImportLines adds (variant id, quantity) pairs after resolving every id.
// Nothing is added if any id is unknown or out of stock.
func (w *Workspace) ImportLines(ctx context.Context, lines []ImportLine) (entities.Cart, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}

	resolved := make([]entities.CartLine, 0, len(lines))
	for _, line := range lines {
		level, err := w.Catalog.FindVariant(ctx, line.VariantID)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line.Row, err)
		}
		if !level.InStock() {
			return nil, fmt.Errorf("line %d: %s: %w", line.Row, level.Variant.DisplayName(), catalog.ErrOutOfStock)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line %d: %w, got %d", line.Row, catalog.ErrInvalidQuantity, line.Quantity)
		}
		resolved = append(resolved, entities.CartLine{Variant: level.Variant, Quantity: line.Quantity})
	}
	return w.Cart.AddLines(ctx, resolved)
}

// ImportLine is one parsed row of a bulk cart import
type ImportLine struct {
	Row       int
	VariantID entities.VariantID
	Quantity  entities.Quantity
}

// RemoveFromCart deletes a line
func (w *Workspace) RemoveFromCart(ctx context.Context, variantID entities.VariantID) (entities.Cart, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}
	return w.Cart.RemoveItem(ctx, variantID)
}

// SetCartQuantity replaces the quantity of an existing line
func (w *Workspace) SetCartQuantity(ctx context.Context, variantID entities.VariantID, quantity entities.Quantity) (entities.Cart, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}
	return w.Cart.SetQuantity(ctx, variantID, quantity)
}

// ClearCart empties the cart and its persisted copy
func (w *Workspace) ClearCart(ctx context.Context) error {
	if err := w.guard(ctx); err != nil {
		return err
	}
	return w.Cart.Clear(ctx)
}

// SubmissionResult describes a cart submission
type SubmissionResult struct {
	Record     *entities.RequestRecord
	Requests   []entities.RequestRecord
	ClearErr   error
	RefreshErr error
}

// SubmitCart creates a draft from the cart. The cart is cleared only after
// the draft exists and is untouched when creation fails.
func (w *Workspace) SubmitCart(ctx context.Context) (*SubmissionResult, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}

	record, err := w.Requests.SubmitCartAsDraft(ctx, w.Cart.Lines())
	if err != nil {
		return nil, err
	}

	result := &SubmissionResult{Record: record}
	if result.ClearErr = w.Cart.Clear(ctx); result.ClearErr != nil {
		w.log.WithError(result.ClearErr).Warn("draft created but persisted cart not removed")
	}

	result.Requests, result.RefreshErr = w.Requests.ListMyRequests(ctx)
	if result.RefreshErr != nil {
		w.log.WithError(result.RefreshErr).Warn("request list refresh after submission failed")
	}
	return result, nil
}

// ListRequests fetches the caller's requests
func (w *Workspace) ListRequests(ctx context.Context) ([]entities.RequestRecord, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}
	return w.Requests.ListMyRequests(ctx)
}

// RequestDetail fetches one request
func (w *Workspace) RequestDetail(ctx context.Context, id entities.RequestID) (*entities.RequestRecord, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}
	return w.Requests.RequestDetail(ctx, id)
}

// SubmitDraft advances a draft request
func (w *Workspace) SubmitDraft(ctx context.Context, id entities.RequestID) (*lifecycle.ActionOutcome, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}
	return w.Requests.SubmitDraft(ctx, id)
}

// ConfirmReceipt marks a completed request as received
func (w *Workspace) ConfirmReceipt(ctx context.Context, id entities.RequestID) (*lifecycle.ActionOutcome, error) {
	if err := w.guard(ctx); err != nil {
		return nil, err
	}
	return w.Requests.ConfirmReceipt(ctx, id)
}

// JournalReplay rebuilds the cart from this process's journal
func (w *Workspace) JournalReplay() (entities.Cart, error) {
	return w.Cart.ReplayJournal()
}

// Events returns every event recorded so far
func (w *Workspace) Events() []events.Event {
	recorded, _ := w.events.ReadAllEvents(0)
	return recorded
}
