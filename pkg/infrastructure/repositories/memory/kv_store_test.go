package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/requisition/pkg/domain/repositories"
)

func TestKeyValueStore(t *testing.T) {
	ctx := context.Background()
	store := NewKeyValueStore()

	_, err := store.Get(ctx, repositories.TokenKey)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	value := []byte("abc123")
	require.NoError(t, store.Set(ctx, repositories.TokenKey, value))
	value[0] = 'X'

	got, err := store.Get(ctx, repositories.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "abc123", string(got), "store keeps its own copy")
	assert.True(t, store.Has(repositories.TokenKey))

	require.NoError(t, store.Delete(ctx, repositories.TokenKey))
	require.NoError(t, store.Delete(ctx, repositories.TokenKey))
	assert.False(t, store.Has(repositories.TokenKey))
	assert.Equal(t, 0, store.Keys())
}

func TestKeyValueStore_InjectedFailure(t *testing.T) {
	ctx := context.Background()
	store := NewKeyValueStore()
	diskFull := errors.New("disk full")
	store.Fail = func(op, key string) error {
		if op == "set" && key == repositories.CartKey {
			return diskFull
		}
		return nil
	}

	assert.ErrorIs(t, store.Set(ctx, repositories.CartKey, []byte("[]")), diskFull)
	assert.NoError(t, store.Set(ctx, repositories.TokenKey, []byte("t")))
	assert.False(t, store.Has(repositories.CartKey))
}
