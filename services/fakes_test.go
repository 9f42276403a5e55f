package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github/vikram-s/docchat/models"
)

// keywordEmbedder produces deterministic 3-dimensional vectors from keyword
// counts, so tests control which texts are similar to which queries.
type keywordEmbedder struct {
	failWith error
}

var embedderKeywords = []string{"alpha", "beta", "gamma"}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.failWith != nil {
		return nil, e.failWith
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(embedderKeywords))
		lower := strings.ToLower(text)
		for j, kw := range embedderKeywords {
			vec[j] = float32(strings.Count(lower, kw))
		}
		// Texts with no keywords still get a non-zero vector.
		if vec[0] == 0 && vec[1] == 0 && vec[2] == 0 {
			vec[0] = 0.001
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// flakyEmbedder fails its first n calls and then behaves like
// keywordEmbedder, for retry tests.
type flakyEmbedder struct {
	keywordEmbedder
	failures int
	calls    int
}

func (e *flakyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.calls <= e.failures {
		return nil, fmt.Errorf("%w: transient provider outage", ErrEmbeddingService)
	}
	return e.keywordEmbedder.Embed(ctx, texts)
}

// failingIndex errors on every operation, for degradation tests.
type failingIndex struct{}

func (failingIndex) Upsert(context.Context, string, []models.IndexEntry) error {
	return fmt.Errorf("%w: upsert exploded", ErrVectorIndex)
}

func (failingIndex) Query(context.Context, string, []float32, int) ([]models.SearchResult, error) {
	return nil, fmt.Errorf("%w: query exploded", ErrVectorIndex)
}

func (failingIndex) DeleteNamespace(context.Context, string) error {
	return fmt.Errorf("%w: delete exploded", ErrVectorIndex)
}

// memoryConversations is an in-memory ConversationStore for pipeline tests.
type memoryConversations struct {
	mu      sync.Mutex
	records map[string]*models.Conversation
}

func newMemoryConversations() *memoryConversations {
	return &memoryConversations{records: make(map[string]*models.Conversation)}
}

func (m *memoryConversations) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv, ok := m.records[id]; ok {
		copied := *conv
		return &copied, nil
	}
	return &models.Conversation{ID: id}, nil
}

func (m *memoryConversations) UpdateConversation(_ context.Context, id, pdfName, pdfContext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = &models.Conversation{ID: id, PDFName: pdfName, PDFContext: pdfContext, UpdatedAt: time.Now()}
	return nil
}

func (m *memoryConversations) ClearConversationContext(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv, ok := m.records[id]; ok {
		conv.PDFName = ""
		conv.PDFContext = ""
	}
	return nil
}

func (m *memoryConversations) Close() error { return nil }

// scriptedCompleter returns the scripted outcomes in order and counts calls.
type scriptedCompleter struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedCompleter) Complete(context.Context, string, string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", fmt.Errorf("%w: no scripted reply for call %d", ErrGeneration, i)
}
