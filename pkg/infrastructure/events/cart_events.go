package events

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/requisition/pkg/domain/entities"
)

const (
	CartItemAddedEvent   = "cart.item.added"
	CartItemRemovedEvent = "cart.item.removed"
	CartQuantitySetEvent = "cart.quantity.set"
	CartClearedEvent     = "cart.cleared"
	CartLoadedEvent      = "cart.loaded"

	RequestDraftCreatedEvent = "request.draft.created"
	RequestSubmittedEvent    = "request.submitted"
	RequestReceivedEvent     = "request.received"
)

// CartEventTypes lists every event type written to a cart journal
var CartEventTypes = []string{
	CartItemAddedEvent,
	CartItemRemovedEvent,
	CartQuantitySetEvent,
	CartClearedEvent,
	CartLoadedEvent,
}

// RequestEventTypes lists the request lifecycle event types
var RequestEventTypes = []string{
	RequestDraftCreatedEvent,
	RequestSubmittedEvent,
	RequestReceivedEvent,
}

// CartActionApplied records one transition and the item count it produced
type CartActionApplied struct {
	Action    entities.CartAction `json:"action"`
	ItemCount entities.Quantity   `json:"item_count"`
}

// RequestChanged records a client-initiated request transition
type RequestChanged struct {
	RequestID entities.RequestID     `json:"request_id"`
	Status    entities.RequestStatus `json:"status"`
}

// CartEventType maps an action kind onto its event type
func CartEventType(kind entities.CartActionKind) string {
	switch kind {
	case entities.CartAdd:
		return CartItemAddedEvent
	case entities.CartRemove:
		return CartItemRemovedEvent
	case entities.CartSetQuantity:
		return CartQuantitySetEvent
	case entities.CartClear:
		return CartClearedEvent
	case entities.CartLoad:
		return CartLoadedEvent
	default:
		return "cart.unknown"
	}
}

// CartJournal is the append-only record of the actions applied by one cart
// engine, stored as a single stream
type CartJournal struct {
	store    EventStore
	streamID string
}

// NewCartJournal opens a fresh journal stream on store
func NewCartJournal(store EventStore) *CartJournal {
	return &CartJournal{
		store:    store,
		streamID: "cart-" + uuid.NewString(),
	}
}

// StreamID returns the journal's stream identifier
func (j *CartJournal) StreamID() string {
	return j.streamID
}

// Record appends an applied action
func (j *CartJournal) Record(action entities.CartAction, itemCount entities.Quantity) error {
	event := NewEvent(CartEventType(action.Kind), j.streamID, CartActionApplied{
		Action:    action,
		ItemCount: itemCount,
	})
	if err := j.store.AppendEvent(j.streamID, event); err != nil {
		return fmt.Errorf("failed to record %s: %w", action.Kind, err)
	}
	return nil
}

// Actions returns the recorded actions in append order
func (j *CartJournal) Actions() ([]entities.CartAction, error) {
	events, err := j.store.ReadEvents(j.streamID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal %s: %w", j.streamID, err)
	}

	actions := make([]entities.CartAction, 0, len(events))
	for _, event := range events {
		applied, ok := event.Data().(CartActionApplied)
		if !ok {
			return nil, fmt.Errorf("journal %s version %d: unexpected payload %T", j.streamID, event.Version(), event.Data())
		}
		actions = append(actions, applied.Action)
	}
	return actions, nil
}

// Replay rebuilds the cart from the recorded actions
func (j *CartJournal) Replay() (entities.Cart, error) {
	actions, err := j.Actions()
	if err != nil {
		return nil, err
	}
	return entities.Replay(actions), nil
}

// LogHandler writes every event it receives to a logger at debug level
type LogHandler struct {
	log   *logrus.Entry
	types map[string]bool
}

// NewLogHandler creates a handler accepting the given event types
func NewLogHandler(log *logrus.Entry, eventTypes ...string) *LogHandler {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	return &LogHandler{log: log, types: types}
}

var _ EventHandler = (*LogHandler)(nil)

func (h *LogHandler) CanHandle(eventType string) bool {
	return h.types[eventType]
}

func (h *LogHandler) Handle(event Event) error {
	entry := h.log.WithFields(logrus.Fields{
		"event":   event.Type(),
		"stream":  event.StreamID(),
		"version": event.Version(),
	})
	switch data := event.Data().(type) {
	case CartActionApplied:
		entry = entry.WithField("item_count", data.ItemCount)
	case RequestChanged:
		entry = entry.WithFields(logrus.Fields{"request_id": data.RequestID, "status": data.Status})
	}
	entry.Debug("event")
	return nil
}
