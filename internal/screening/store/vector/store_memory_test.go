package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/screening/models"
)

func seedIndex(t *testing.T) *InMemoryIndex {
	t.Helper()
	index := NewInMemoryIndex()
	err := index.Upsert(context.Background(), []models.VectorEntry{
		{RecordID: "A", Dataset: "sanctions_national", Vector: []float32{1, 0, 0}},
		{RecordID: "B", Dataset: "sanctions_national", Vector: []float32{0.9, 0.1, 0}},
		{RecordID: "C", Dataset: "un_consolidated", Vector: []float32{0, 1, 0}},
		{RecordID: "D", Dataset: "tax_delinquents", Vector: []float32{0, 0, 1}},
	})
	require.NoError(t, err)
	return index
}

func TestInMemoryIndexQuery(t *testing.T) {
	ctx := context.Background()
	index := seedIndex(t)

	t.Run("returns nearest first", func(t *testing.T) {
		hits, err := index.Query(ctx, []float32{1, 0, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "A", hits[0].RecordID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
		assert.Equal(t, "B", hits[1].RecordID)
		assert.Greater(t, hits[0].Score, hits[1].Score)
	})

	t.Run("dataset filter restricts results", func(t *testing.T) {
		hits, err := index.Query(ctx, []float32{1, 0, 0}, 10, []string{"un_consolidated"})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "C", hits[0].RecordID)
	})

	t.Run("topK caps the result set", func(t *testing.T) {
		hits, err := index.Query(ctx, []float32{1, 1, 1}, 3, nil)
		require.NoError(t, err)
		assert.Len(t, hits, 3)
	})

	t.Run("zero topK returns nothing", func(t *testing.T) {
		hits, err := index.Query(ctx, []float32{1, 0, 0}, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("ties break on record id", func(t *testing.T) {
		hits, err := index.Query(ctx, []float32{0.5, 0.5, 0}, 10, []string{"sanctions_national", "un_consolidated"})
		require.NoError(t, err)
		require.Len(t, hits, 3)
		// A and C score identically against the diagonal query.
		assert.Equal(t, "B", hits[0].RecordID)
	})
}

func TestInMemoryIndexUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	index := seedIndex(t)

	err := index.Upsert(ctx, []models.VectorEntry{
		{RecordID: "A", Dataset: "sanctions_national", Vector: []float32{0, 1, 0}},
	})
	require.NoError(t, err)

	hits, err := index.Query(ctx, []float32{0, 1, 0}, 1, []string{"sanctions_national"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "A", hits[0].RecordID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestInMemoryIndexDeleteDataset(t *testing.T) {
	ctx := context.Background()
	index := seedIndex(t)

	require.NoError(t, index.DeleteDataset(ctx, "sanctions_national"))

	hits, err := index.Query(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	for _, hit := range hits {
		assert.NotEqual(t, "sanctions_national", hit.Dataset)
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
