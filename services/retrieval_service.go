package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github/vikram-s/docchat/models"
)

// DefaultTopK is how many chunks a retrieval pulls when the caller does not
// say otherwise.
const DefaultTopK = 3

// FallbackContextChars bounds the slice of stored document text used when
// vector retrieval yields nothing.
const FallbackContextChars = 4000

// RetrievalService embeds a user query and assembles the most relevant
// document passages for a conversation.
type RetrievalService interface {
	// RelevantContext returns a context block of "Page {n}: {text}" passages
	// in descending relevance order, plus the raw results. When the index
	// yields nothing (or fails), the conversation's stored document text
	// serves as a bounded fallback context with no source attribution, so a
	// degraded index never blocks the chat reply.
	RelevantContext(ctx context.Context, query, chatID string, topK int) (string, []models.SearchResult, error)
}

type retrievalServiceImpl struct {
	embedder      Embedder
	index         VectorIndex
	conversations ConversationStore
}

func NewRetrievalService(embedder Embedder, index VectorIndex, conversations ConversationStore) RetrievalService {
	return &retrievalServiceImpl{embedder: embedder, index: index, conversations: conversations}
}

// RelevantContext implements RetrievalService. The query embedding is the
// only terminal failure here: interactive callers should fail fast rather
// than block the reply on retries.
func (s *retrievalServiceImpl) RelevantContext(ctx context.Context, query, chatID string, topK int) (string, []models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil, fmt.Errorf("%w: missing query text", ErrInvalidRequest)
	}
	if chatID == "" {
		return "", nil, fmt.Errorf("%w: missing chat id", ErrInvalidRequest)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", nil, err
	}
	if len(vectors) != 1 {
		return "", nil, fmt.Errorf("%w: expected 1 query vector, got %d", ErrEmbeddingService, len(vectors))
	}

	namespace := NamespaceForChat(chatID)
	results, err := s.index.Query(ctx, namespace, vectors[0], topK)
	if err != nil {
		// Retrieval failures are non-fatal: degrade to the stored document.
		log.Printf("RETRIEVE WARN: query against namespace %s failed, continuing without passages: %v", namespace, err)
		return s.fallbackContext(ctx, chatID), nil, nil
	}
	if len(results) == 0 {
		log.Printf("RETRIEVE: No relevant passages in namespace %s", namespace)
		return s.fallbackContext(ctx, chatID), nil, nil
	}

	// Relevance order is preserved so the model sees the best passage first.
	parts := make([]string, 0, len(results))
	for _, result := range results {
		parts = append(parts, fmt.Sprintf("Page %d: %s", result.PageNumber, result.Text))
	}
	log.Printf("RETRIEVE: Assembled context from %d passages in namespace %s", len(results), namespace)
	return strings.Join(parts, "\n\n"), results, nil
}

// fallbackContext returns a bounded slice of the conversation's denormalized
// document text, or "" when no document is attached.
func (s *retrievalServiceImpl) fallbackContext(ctx context.Context, chatID string) string {
	conv, err := s.conversations.GetConversation(ctx, chatID)
	if err != nil {
		log.Printf("RETRIEVE WARN: conversation lookup for chat %s failed: %v", chatID, err)
		return ""
	}
	text := strings.TrimSpace(conv.PDFContext)
	if text == "" {
		return ""
	}
	if len(text) > FallbackContextChars {
		text = text[:FallbackContextChars]
	}
	log.Printf("RETRIEVE: Using stored document text as fallback context for chat %s (%d chars)", chatID, len(text))
	return text
}
