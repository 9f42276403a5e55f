package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/vikram-s/docchat/models"
)

// newEmbedServer returns a mock Ollama /api/embed endpoint that records each
// request's batch size and answers with a deterministic vector per text.
func newEmbedServer(t *testing.T, status int) (*httptest.Server, *[]int) {
	t.Helper()
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)

		var req models.OllamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Input))

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		resp := models.OllamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i, text := range req.Input {
			resp.Embeddings[i] = []float32{float32(len(text)), 1}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return server, &batchSizes
}

func TestEmbedSubBatchesTransparently(t *testing.T) {
	server, batchSizes := newEmbedServer(t, http.StatusOK)
	embedder := NewOllamaEmbedder(server.Client(), server.URL, "test-model", 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := embedder.Embed(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, vectors, len(texts))
	assert.Equal(t, []int{2, 2, 1}, *batchSizes, "5 texts at batch size 2 mean 3 requests")

	// Order is preserved across sub-batches: vector i encodes text i's length.
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0])
	}
}

func TestEmbedDeterministic(t *testing.T) {
	server, _ := newEmbedServer(t, http.StatusOK)
	embedder := NewOllamaEmbedder(server.Client(), server.URL, "test-model", 0)

	first, err := embedder.Embed(context.Background(), []string{"same text"})
	require.NoError(t, err)
	second, err := embedder.Embed(context.Background(), []string{"same text"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEmbedEmptyInput(t *testing.T) {
	embedder := NewOllamaEmbedder(http.DefaultClient, "http://localhost:0", "test-model", 0)
	vectors, err := embedder.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedServiceFailure(t *testing.T) {
	server, _ := newEmbedServer(t, http.StatusInternalServerError)
	embedder := NewOllamaEmbedder(server.Client(), server.URL, "test-model", 0)

	_, err := embedder.Embed(context.Background(), []string{"text"})
	require.ErrorIs(t, err, ErrEmbeddingService)
}

func TestEmbedVectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"embeddings": [[1, 2]]}`)
	}))
	t.Cleanup(server.Close)

	embedder := NewOllamaEmbedder(server.Client(), server.URL, "test-model", 0)
	_, err := embedder.Embed(context.Background(), []string{"one", "two"})
	require.ErrorIs(t, err, ErrEmbeddingService)
}

func TestEmbedMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json at all`)
	}))
	t.Cleanup(server.Close)

	embedder := NewOllamaEmbedder(server.Client(), server.URL, "test-model", 0)
	_, err := embedder.Embed(context.Background(), []string{"text"})
	require.ErrorIs(t, err, ErrEmbeddingService)
}
