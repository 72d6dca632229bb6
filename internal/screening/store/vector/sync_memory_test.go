package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySyncState(t *testing.T) {
	ctx := context.Background()
	store := NewInMemorySyncState()

	t.Run("absent records are omitted", func(t *testing.T) {
		state, err := store.GetMany(ctx, "sanctions_national", []string{"A", "B"})
		require.NoError(t, err)
		assert.Empty(t, state)
	})

	t.Run("set then get round trips", func(t *testing.T) {
		require.NoError(t, store.SetMany(ctx, "sanctions_national", map[string]string{
			"A": "2024-01-01",
			"B": "2024-02-01",
		}))

		state, err := store.GetMany(ctx, "sanctions_national", []string{"A", "B", "C"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"A": "2024-01-01", "B": "2024-02-01"}, state)
	})

	t.Run("datasets are isolated", func(t *testing.T) {
		state, err := store.GetMany(ctx, "un_consolidated", []string{"A"})
		require.NoError(t, err)
		assert.Empty(t, state)
	})

	t.Run("delete clears the dataset", func(t *testing.T) {
		require.NoError(t, store.DeleteDataset(ctx, "sanctions_national"))
		state, err := store.GetMany(ctx, "sanctions_national", []string{"A"})
		require.NoError(t, err)
		assert.Empty(t, state)
	})
}
