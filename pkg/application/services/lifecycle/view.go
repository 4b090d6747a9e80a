package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/infrastructure/events"
)

var (
	// ErrEmptyCart rejects a draft submission locally
	ErrEmptyCart = errors.New("cart is empty")
	// ErrActionNotAllowed means the request's status does not permit the action
	ErrActionNotAllowed = errors.New("action not allowed for request status")
	// ErrRequestNotFound is a 404 on a request detail, distinct from a failed fetch
	ErrRequestNotFound = errors.New("request not found")
	// ErrSuperseded means a later-issued fetch of the same resource already
	// applied its result
	ErrSuperseded = errors.New("fetch superseded by a newer one")
)

// Session supplies the token for protected calls and accepts invalidation
// when the backend refuses it
type Session interface {
	Token() string
	Invalidate(ctx context.Context, reason string)
}

// ActionOutcome reports a client-initiated transition and the list refresh
// that always follows it
type ActionOutcome struct {
	RequestID  entities.RequestID
	Action     entities.Action
	Result     *entities.ActionResult
	Requests   []entities.RequestRecord
	RefreshErr error
}

// View mirrors server-owned requests. It never advances a status locally:
// after every action the list is fetched again.
type View struct {
	backend repositories.InventoryBackend
	session Session
	events  events.EventStore
	log     *logrus.Entry

	listIssued atomic.Uint64

	mu            sync.Mutex
	listApplied   uint64
	requests      []entities.RequestRecord
	detailIssued  map[entities.RequestID]uint64
	detailApplied map[entities.RequestID]uint64
	details       map[entities.RequestID]entities.RequestRecord
}

// NewView creates a view. eventStore may be nil.
func NewView(backend repositories.InventoryBackend, session Session, eventStore events.EventStore, log *logrus.Entry) *View {
	return &View{
		backend:       backend,
		session:       session,
		events:        eventStore,
		log:           log,
		detailIssued:  make(map[entities.RequestID]uint64),
		detailApplied: make(map[entities.RequestID]uint64),
		details:       make(map[entities.RequestID]entities.RequestRecord),
	}
}

// SubmitCartAsDraft creates a draft request from cart. An empty cart is
// rejected without a backend call. Clearing the cart on success is the
// caller's responsibility.
func (v *View) SubmitCartAsDraft(ctx context.Context, cart entities.Cart) (*entities.RequestRecord, error) {
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	record, err := v.backend.CreateRequest(ctx, v.session.Token(), cart.DraftItems())
	if err != nil {
		v.checkAuth(ctx, err, "create request")
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	v.mu.Lock()
	v.details[record.ID] = *record
	v.mu.Unlock()

	v.log.WithFields(logrus.Fields{
		"request_id": record.ID,
		"lines":      len(record.Items),
	}).Info("draft request created")
	v.publish(events.RequestDraftCreatedEvent, record.ID, record.Status)
	return record, nil
}

// ListMyRequests fetches the caller's requests. On failure it returns an
// empty list and the error; the cached list is kept. A result that resolves
// after a later-issued fetch was applied returns ErrSuperseded.
func (v *View) ListMyRequests(ctx context.Context) ([]entities.RequestRecord, error) {
	seq := v.listIssued.Add(1)

	records, err := v.backend.ListRequests(ctx, v.session.Token())
	if err != nil {
		v.checkAuth(ctx, err, "list requests")
		return []entities.RequestRecord{}, fmt.Errorf("failed to list requests: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.listApplied > seq {
		v.log.WithField("seq", seq).Debug("discarding superseded request list")
		return nil, ErrSuperseded
	}
	v.listApplied = seq
	v.requests = append([]entities.RequestRecord(nil), records...)
	return append([]entities.RequestRecord(nil), records...), nil
}

// RequestDetail fetches one request. A 404 yields ErrRequestNotFound.
func (v *View) RequestDetail(ctx context.Context, id entities.RequestID) (*entities.RequestRecord, error) {
	v.mu.Lock()
	v.detailIssued[id]++
	seq := v.detailIssued[id]
	v.mu.Unlock()

	record, err := v.backend.GetRequest(ctx, v.session.Token(), id)
	if err != nil {
		if repositories.IsNotFound(err) {
			v.mu.Lock()
			delete(v.details, id)
			v.mu.Unlock()
			return nil, fmt.Errorf("request %d: %w", id, ErrRequestNotFound)
		}
		v.checkAuth(ctx, err, "request detail")
		return nil, fmt.Errorf("failed to fetch request %d: %w", id, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.detailApplied[id] > seq {
		v.log.WithFields(logrus.Fields{"request_id": id, "seq": seq}).Debug("discarding superseded request detail")
		return nil, ErrSuperseded
	}
	v.detailApplied[id] = seq
	v.details[id] = *record

	result := *record
	return &result, nil
}

// SubmitDraft advances a DRAFT request to the approval flow
func (v *View) SubmitDraft(ctx context.Context, id entities.RequestID) (*ActionOutcome, error) {
	return v.perform(ctx, id, entities.ActionSubmitDraft)
}

// ConfirmReceipt marks a COMPLETED request as received
func (v *View) ConfirmReceipt(ctx context.Context, id entities.RequestID) (*ActionOutcome, error) {
	return v.perform(ctx, id, entities.ActionConfirmReceipt)
}

func (v *View) perform(ctx context.Context, id entities.RequestID, action entities.Action) (*ActionOutcome, error) {
	status, known := v.cachedStatus(id)
	if !known || !status.Allows(action) {
		// cached status may be stale, refuse only on the server's current status
		record, err := v.RequestDetail(ctx, id)
		switch {
		case errors.Is(err, ErrSuperseded):
			if status, known = v.cachedStatus(id); !known {
				return nil, err
			}
		case err != nil:
			return nil, err
		default:
			status = record.Status
		}
	}

	if !status.Allows(action) {
		return nil, fmt.Errorf("%w: cannot %s request %d in status %s", ErrActionNotAllowed, action, id, status)
	}

	var result *entities.ActionResult
	var err error
	switch action {
	case entities.ActionSubmitDraft:
		result, err = v.backend.SubmitRequest(ctx, v.session.Token(), id)
	case entities.ActionConfirmReceipt:
		result, err = v.backend.ReceiveRequest(ctx, v.session.Token(), id)
	}
	if err != nil {
		v.checkAuth(ctx, err, string(action))
	}

	v.mu.Lock()
	delete(v.details, id)
	v.mu.Unlock()

	outcome := &ActionOutcome{RequestID: id, Action: action, Result: result}
	outcome.Requests, outcome.RefreshErr = v.ListMyRequests(ctx)
	if outcome.RefreshErr != nil {
		v.log.WithError(outcome.RefreshErr).Warn("refresh after action failed")
	}

	if err != nil {
		return outcome, fmt.Errorf("failed to %s request %d: %w", action, id, err)
	}

	v.log.WithFields(logrus.Fields{"request_id": id, "action": action}).Info("request action accepted")
	if action == entities.ActionSubmitDraft {
		v.publish(events.RequestSubmittedEvent, id, v.statusAfter(outcome))
	} else {
		v.publish(events.RequestReceivedEvent, id, v.statusAfter(outcome))
	}
	return outcome, nil
}

// cachedStatus looks in the detail cache, then the list cache
func (v *View) cachedStatus(id entities.RequestID) (entities.RequestStatus, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if record, ok := v.details[id]; ok {
		return record.Status, true
	}
	for _, record := range v.requests {
		if record.ID == id {
			return record.Status, true
		}
	}
	return "", false
}

// statusAfter reads the refreshed status, falling back to the action result
func (v *View) statusAfter(outcome *ActionOutcome) entities.RequestStatus {
	for _, record := range outcome.Requests {
		if record.ID == outcome.RequestID {
			return record.Status
		}
	}
	if outcome.Result != nil && outcome.Result.Record != nil {
		return outcome.Result.Record.Status
	}
	return ""
}

// Requests returns the last applied list
func (v *View) Requests() []entities.RequestRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]entities.RequestRecord(nil), v.requests...)
}

func (v *View) checkAuth(ctx context.Context, err error, call string) {
	if repositories.IsAuthFailure(err) {
		v.session.Invalidate(ctx, call+" refused: "+err.Error())
	}
}

func (v *View) publish(eventType string, id entities.RequestID, status entities.RequestStatus) {
	if v.events == nil {
		return
	}
	streamID := "request-" + strconv.FormatInt(int64(id), 10)
	event := events.NewEvent(eventType, streamID, events.RequestChanged{RequestID: id, Status: status})
	if err := v.events.AppendEvent(streamID, event); err != nil {
		v.log.WithError(err).Warn("failed to record request event")
	}
}
