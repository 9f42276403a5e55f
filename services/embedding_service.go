package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github/vikram-s/docchat/models"
)

// DefaultEmbedBatchSize caps how many texts go to the embedding service in
// one request. Larger caller batches are split transparently.
const DefaultEmbedBatchSize = 64

// Embedder converts a batch of texts into one vector per text, same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OllamaEmbedder generates embeddings through Ollama's /api/embed endpoint.
// It is a long-lived, connection-pooled client safe for concurrent use.
type OllamaEmbedder struct {
	httpClient *http.Client
	baseURL    string
	model      string
	batchSize  int
}

// NewOllamaEmbedder creates an embedding client. batchSize <= 0 selects the
// default.
func NewOllamaEmbedder(client *http.Client, baseURL, model string, batchSize int) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text:v1.5"
	}
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &OllamaEmbedder{
		httpClient: client,
		baseURL:    baseURL,
		model:      model,
		batchSize:  batchSize,
	}
}

// Embed returns one vector per input text, preserving order. Batches larger
// than the service limit are sub-batched internally rather than rejected.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (e *OllamaEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(models.OllamaEmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal embed request: %v", ErrEmbeddingService, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create embed request: %v", ErrEmbeddingService, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding api call failed: %v", ErrEmbeddingService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: embedding api returned status %d, body: %s", ErrEmbeddingService, resp.StatusCode, string(bodyBytes))
	}

	var embedResp models.OllamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode embedding response: %v", ErrEmbeddingService, err)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingService, len(texts), len(embedResp.Embeddings))
	}
	return embedResp.Embeddings, nil
}
