package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/domain/services"
	"github.com/vsinha/requisition/pkg/infrastructure/events"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
	"github.com/vsinha/requisition/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/requisition/pkg/infrastructure/testing"
)

func newEngine(t *testing.T, store repositories.KeyValueStore) *Engine {
	t.Helper()
	codec, err := services.NewCartSnapshotCodec()
	require.NoError(t, err)
	journal := events.NewCartJournal(events.NewInMemoryEventStore(nil))
	return NewEngine(store, codec, journal, logging.Discard())
}

func TestEngine_PersistsAfterEachTransition(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	engine := newEngine(t, store)
	require.NoError(t, engine.Hydrate(ctx))

	paper := testhelpers.CatalogVariant(1)
	pen := testhelpers.CatalogVariant(2)

	_, err := engine.AddItem(ctx, paper, 2)
	require.NoError(t, err)
	cart, err := engine.AddItem(ctx, pen, 3)
	require.NoError(t, err)
	assert.Equal(t, entities.Quantity(5), cart.ItemCount())

	raw, err := store.Get(ctx, repositories.CartKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"variant": {"id": 1, "full_code": "1010301001001", "specific_code": "001", "type_name": "Kertas", "name": "Kertas HVS", "variant_name": "A4 80gsm", "unit_of_measure": "rim"}, "quantity": 2},
		{"variant": {"id": 2, "full_code": "1010302002001", "specific_code": "001", "type_name": "Alat Tulis", "name": "Pulpen", "variant_name": "Gel Hitam 0.5", "unit_of_measure": "pcs"}, "quantity": 3}
	]`, string(raw))
}

func TestEngine_ReloadReconstructsCart(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()

	first := newEngine(t, store)
	require.NoError(t, first.Hydrate(ctx))
	_, err := first.AddItem(ctx, testhelpers.CatalogVariant(1), 2)
	require.NoError(t, err)
	_, err = first.AddItem(ctx, testhelpers.CatalogVariant(4), 7)
	require.NoError(t, err)

	second := newEngine(t, store)
	require.NoError(t, second.Hydrate(ctx))

	assert.Equal(t, first.Lines(), second.Lines())
	assert.Equal(t, entities.Quantity(9), second.ItemCount())
}

func TestEngine_EmptyCartNotWrittenWithoutPriorValue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	engine := newEngine(t, store)
	require.NoError(t, engine.Hydrate(ctx))

	_, err := engine.AddItem(ctx, testhelpers.CatalogVariant(1), -3)
	require.NoError(t, err)
	_, err = engine.SetQuantity(ctx, 1, 7)
	require.NoError(t, err)

	assert.True(t, engine.IsEmpty())
	assert.False(t, store.Has(repositories.CartKey))
}

func TestEngine_EmptiedCartOverwritesStaleValue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	engine := newEngine(t, store)
	require.NoError(t, engine.Hydrate(ctx))

	_, err := engine.AddItem(ctx, testhelpers.CatalogVariant(1), 3)
	require.NoError(t, err)
	_, err = engine.AddItem(ctx, testhelpers.CatalogVariant(1), -5)
	require.NoError(t, err)

	raw, err := store.Get(ctx, repositories.CartKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
	_, ok := engine.Lines().Line(1)
	assert.False(t, ok)
}

func TestEngine_ClearDeletesPersistedEntry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	engine := newEngine(t, store)

	_, err := engine.AddItem(ctx, testhelpers.CatalogVariant(2), 1)
	require.NoError(t, err)
	require.True(t, store.Has(repositories.CartKey))

	require.NoError(t, engine.Clear(ctx))

	assert.True(t, engine.IsEmpty())
	assert.False(t, store.Has(repositories.CartKey))
}

func TestEngine_HydrateCorruptValues(t *testing.T) {
	corrupt := []string{
		`{"variant": {"id": 1}, "quantity": 2}`,
		`not json at all`,
		`"[]"`,
		`[{"variant": "pulpen", "quantity": 2}]`,
	}

	for _, value := range corrupt {
		t.Run(value, func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewKeyValueStore()
			require.NoError(t, store.Set(ctx, repositories.CartKey, []byte(value)))
			engine := newEngine(t, store)

			err := engine.Hydrate(ctx)

			assert.NoError(t, err)
			assert.True(t, engine.IsEmpty())
			assert.False(t, store.Has(repositories.CartKey), "corrupt value is discarded")
		})
	}
}

func TestEngine_HydrateNormalisesLines(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	raw := `[
		{"variant": {"id": 1, "name": "Kertas HVS"}, "quantity": 2},
		{"variant": {"id": 1, "name": "Kertas HVS"}, "quantity": 3},
		{"variant": {"id": 2, "name": "Pulpen"}, "quantity": 0},
		{"variant": {"id": 4, "name": "Map Plastik"}, "quantity": -4}
	]`
	require.NoError(t, store.Set(ctx, repositories.CartKey, []byte(raw)))
	engine := newEngine(t, store)

	require.NoError(t, engine.Hydrate(ctx))

	lines := engine.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, entities.Quantity(5), lines[0].Quantity)
}

func TestEngine_HydrateRunsOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	engine := newEngine(t, store)
	require.NoError(t, engine.Hydrate(ctx))

	require.NoError(t, store.Set(ctx, repositories.CartKey, []byte(`[{"variant": {"id": 9}, "quantity": 1}]`)))
	require.NoError(t, engine.Hydrate(ctx))

	assert.True(t, engine.IsEmpty())
}

func TestEngine_HydrateStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	store.Fail = func(op, key string) error { return errors.New("permission denied") }
	engine := newEngine(t, store)

	err := engine.Hydrate(ctx)

	assert.Error(t, err)
	assert.True(t, engine.IsEmpty())
}

func TestEngine_PersistFailureKeepsTransition(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	store.Fail = func(op, key string) error {
		if op == "set" {
			return errors.New("disk full")
		}
		return nil
	}
	engine := newEngine(t, store)

	cart, err := engine.AddItem(ctx, testhelpers.CatalogVariant(1), 2)

	assert.Error(t, err)
	assert.Equal(t, entities.Quantity(2), cart.ItemCount())
	assert.Equal(t, entities.Quantity(2), engine.ItemCount())
}

func TestEngine_JournalReplayMatchesLiveCart(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueStore()
	require.NoError(t, store.Set(ctx, repositories.CartKey, []byte(`[{"variant": {"id": 4, "name": "Map Plastik"}, "quantity": 2}]`)))
	engine := newEngine(t, store)
	require.NoError(t, engine.Hydrate(ctx))

	_, _ = engine.AddItem(ctx, testhelpers.CatalogVariant(1), 4)
	_, _ = engine.SetQuantity(ctx, 4, 9)
	_, _ = engine.AddItem(ctx, testhelpers.CatalogVariant(2), 1)
	_, _ = engine.RemoveItem(ctx, 1)
	_, _ = engine.AddLines(ctx, []entities.CartLine{
		{Variant: testhelpers.CatalogVariant(2), Quantity: 2},
		{Variant: testhelpers.CatalogVariant(1), Quantity: 1},
	})

	replayed, err := engine.ReplayJournal()
	require.NoError(t, err)
	assert.Equal(t, engine.Lines(), replayed)
	assert.Equal(t, entities.Quantity(13), replayed.ItemCount())
}

func TestEngine_TransitionsApplyInCallOrder(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, memory.NewKeyValueStore())
	pen := testhelpers.CatalogVariant(2)

	_, _ = engine.AddItem(ctx, pen, 4)
	_, _ = engine.SetQuantity(ctx, pen.ID, 10)
	cart, _ := engine.RemoveItem(ctx, pen.ID)

	assert.True(t, cart.IsEmpty())
}
