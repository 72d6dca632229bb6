package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-model")
}

func TestEmbed(t *testing.T) {
	ctx := context.Background()

	t.Run("returns one vector per text", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/embed", r.URL.Path)

			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-model", req.Model)
			assert.Equal(t, []string{"alpha", "beta"}, req.Input)

			_ = json.NewEncoder(w).Encode(embedResponse{
				Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
			})
		})

		vecs, err := client.Embed(ctx, []string{"alpha", "beta"})
		require.NoError(t, err)
		require.Len(t, vecs, 2)
		assert.Equal(t, []float32{0.1, 0.2}, vecs[0])
	})

	t.Run("empty input short-circuits", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected for empty input")
		})
		vecs, err := client.Embed(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, vecs)
	})

	t.Run("empty response is an error", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{})
		})
		_, err := client.Embed(ctx, []string{"alpha"})
		assert.ErrorContains(t, err, "no vectors")
	})

	t.Run("length mismatch is an error", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{
				Embeddings: [][]float32{{0.1}},
			})
		})
		_, err := client.Embed(ctx, []string{"alpha", "beta"})
		assert.ErrorContains(t, err, "2 texts")
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := client.Embed(ctx, []string{"alpha"})
		assert.ErrorContains(t, err, "status 500")
	})
}
