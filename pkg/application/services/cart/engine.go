package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/domain/services"
	"github.com/vsinha/requisition/pkg/infrastructure/events"
)

// Engine holds the working cart. Transitions are applied one at a time in
// call order; each is journaled and then persisted.
type Engine struct {
	store   repositories.KeyValueStore
	codec   *services.CartSnapshotCodec
	journal *events.CartJournal
	log     *logrus.Entry

	mu        sync.Mutex
	cart      entities.Cart
	persisted bool
	hydrated  bool
}

// NewEngine creates an engine with an empty cart. journal may be nil.
func NewEngine(store repositories.KeyValueStore, codec *services.CartSnapshotCodec, journal *events.CartJournal, log *logrus.Entry) *Engine {
	return &Engine{
		store:   store,
		codec:   codec,
		journal: journal,
		log:     log,
		cart:    entities.Cart{},
	}
}

// Hydrate loads the persisted cart once. A corrupt value is deleted and the
// cart starts empty without error. A store read failure also leaves the cart
// empty but is returned.
func (e *Engine) Hydrate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hydrated {
		return nil
	}
	e.hydrated = true

	raw, err := e.store.Get(ctx, repositories.CartKey)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	e.persisted = true

	lines, err := e.codec.Decode(raw)
	if err != nil {
		e.log.WithError(err).Warn("discarding corrupt persisted cart")
		if delErr := e.store.Delete(ctx, repositories.CartKey); delErr != nil {
			e.log.WithError(delErr).Warn("failed to delete corrupt cart")
		} else {
			e.persisted = false
		}
		return nil
	}

	e.applyLocked(entities.LoadAction(lines))
	e.log.WithFields(logrus.Fields{
		"lines":      len(e.cart),
		"item_count": e.cart.ItemCount(),
	}).Debug("cart hydrated")
	return nil
}

// AddItem merges quantity into the variant's line
func (e *Engine) AddItem(ctx context.Context, variant entities.Variant, quantity entities.Quantity) (entities.Cart, error) {
	return e.apply(ctx, entities.AddAction(variant, quantity))
}

// RemoveItem deletes the variant's line
func (e *Engine) RemoveItem(ctx context.Context, variantID entities.VariantID) (entities.Cart, error) {
	return e.apply(ctx, entities.RemoveAction(variantID))
}

// SetQuantity replaces the quantity of an existing line
func (e *Engine) SetQuantity(ctx context.Context, variantID entities.VariantID, quantity entities.Quantity) (entities.Cart, error) {
	return e.apply(ctx, entities.SetQuantityAction(variantID, quantity))
}

// AddLines merges lines in order, one AddItem per line
func (e *Engine) AddLines(ctx context.Context, lines []entities.CartLine) (entities.Cart, error) {
	var firstErr error
	var cart entities.Cart
	for _, line := range lines {
		next, err := e.AddItem(ctx, line.Variant, line.Quantity)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		cart = next
	}
	if cart == nil {
		cart = e.Lines()
	}
	return cart, firstErr
}

// Clear empties the cart and deletes the persisted entry
func (e *Engine) Clear(ctx context.Context) error {
	_, err := e.apply(ctx, entities.ClearAction())
	return err
}

func (e *Engine) apply(ctx context.Context, action entities.CartAction) (entities.Cart, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.hydrated = true
	e.applyLocked(action)
	snapshot := e.cart.Clone()

	if err := e.persistLocked(ctx, action.Kind); err != nil {
		e.log.WithError(err).WithField("action", action.Kind.String()).Warn("cart not persisted")
		return snapshot, err
	}
	return snapshot, nil
}

func (e *Engine) applyLocked(action entities.CartAction) {
	e.cart = entities.Reduce(e.cart, action)
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(action, e.cart.ItemCount()); err != nil {
		e.log.WithError(err).Warn("cart journal append failed")
	}
}

// persistLocked writes the cart when it is non-empty or when a previous
// value exists, so an emptied cart overwrites stale data. Clear deletes.
func (e *Engine) persistLocked(ctx context.Context, kind entities.CartActionKind) error {
	if kind == entities.CartClear {
		if err := e.store.Delete(ctx, repositories.CartKey); err != nil {
			return fmt.Errorf("failed to delete persisted cart: %w", err)
		}
		e.persisted = false
		return nil
	}

	if e.cart.IsEmpty() && !e.persisted {
		return nil
	}

	data, err := e.codec.Encode(e.cart)
	if err != nil {
		return err
	}
	if err := e.store.Set(ctx, repositories.CartKey, data); err != nil {
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	e.persisted = true
	return nil
}

// Lines returns a copy of the current cart
func (e *Engine) Lines() entities.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Clone()
}

// ItemCount returns the sum of all line quantities
func (e *Engine) ItemCount() entities.Quantity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.ItemCount()
}

// IsEmpty reports whether the cart has no lines
func (e *Engine) IsEmpty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.IsEmpty()
}

// ReplayJournal rebuilds the cart from the journal
func (e *Engine) ReplayJournal() (entities.Cart, error) {
	if e.journal == nil {
		return nil, errors.New("cart engine has no journal")
	}
	return e.journal.Replay()
}
