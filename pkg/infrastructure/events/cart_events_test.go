package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/requisition/pkg/domain/entities"
)

func TestCartJournal_Replay(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	journal := NewCartJournal(store)
	assert.True(t, strings.HasPrefix(journal.StreamID(), "cart-"))

	pen := entities.Variant{ID: 1, Name: "Pulpen"}
	paper := entities.Variant{ID: 2, Name: "Kertas"}

	actions := []entities.CartAction{
		entities.AddAction(pen, 3),
		entities.AddAction(paper, 1),
		entities.SetQuantityAction(1, 5),
		entities.AddAction(paper, -1),
	}

	live := entities.Cart{}
	for _, action := range actions {
		live = entities.Reduce(live, action)
		require.NoError(t, journal.Record(action, live.ItemCount()))
	}

	recorded, err := journal.Actions()
	require.NoError(t, err)
	assert.Equal(t, actions, recorded)

	replayed, err := journal.Replay()
	require.NoError(t, err)
	assert.Equal(t, live, replayed)

	events, err := store.ReadEvents(journal.StreamID(), 1)
	require.NoError(t, err)
	assert.Equal(t, CartQuantitySetEvent, events[2].Type())
	assert.Equal(t, entities.Quantity(5), events[3].Data().(CartActionApplied).ItemCount)
}

func TestCartJournal_SeparateStreams(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	first := NewCartJournal(store)
	second := NewCartJournal(store)
	assert.NotEqual(t, first.StreamID(), second.StreamID())

	require.NoError(t, first.Record(entities.ClearAction(), 0))

	actions, err := second.Actions()
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestCartEventType(t *testing.T) {
	assert.Equal(t, CartItemAddedEvent, CartEventType(entities.CartAdd))
	assert.Equal(t, CartLoadedEvent, CartEventType(entities.CartLoad))
	assert.Equal(t, "cart.unknown", CartEventType(entities.CartActionKind(99)))
}

func TestLogHandler(t *testing.T) {
	handler := NewLogHandler(nil, RequestEventTypes...)
	assert.True(t, handler.CanHandle(RequestSubmittedEvent))
	assert.False(t, handler.CanHandle(CartClearedEvent))
}
