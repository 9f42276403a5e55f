package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github/vikram-s/docchat/models"
)

// IngestStats reports what a completed ingestion produced.
type IngestStats struct {
	Pages  int
	Chunks int
}

// IngestionService runs the document write path: extract pages, chunk, embed,
// upsert into the chat's namespace, then persist the conversation record.
type IngestionService interface {
	// IngestDocument indexes a PDF into the chat's namespace. Entry ids are
	// freshly generated per run, so re-ingesting the same document into the
	// same chat accumulates duplicate entries; use ReplaceDocument for
	// replace semantics.
	IngestDocument(ctx context.Context, chatID string, pdf []byte, pdfName string) (*IngestStats, error)
	// ReplaceDocument clears the chat's namespace before ingesting.
	ReplaceDocument(ctx context.Context, chatID string, pdf []byte, pdfName string) (*IngestStats, error)
	// RemoveDocument clears the namespace and the conversation's context.
	RemoveDocument(ctx context.Context, chatID string) error
}

type ingestionServiceImpl struct {
	embedder      Embedder
	index         VectorIndex
	conversations ConversationStore
	chunkSize     int
	chunkOverlap  int
	retry         RetryPolicy

	// extract is swapped for a stub in tests; production uses unipdf.
	extract func(data []byte) ([]models.PageText, error)
}

// NewIngestionService wires the pipeline. chunkSize/chunkOverlap <= 0 select
// the defaults; a zero retry policy falls back to DefaultRetryPolicy.
func NewIngestionService(embedder Embedder, index VectorIndex, conversations ConversationStore, chunkSize, chunkOverlap int, retry RetryPolicy) IngestionService {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if retry.Attempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &ingestionServiceImpl{
		embedder:      embedder,
		index:         index,
		conversations: conversations,
		chunkSize:     chunkSize,
		chunkOverlap:  chunkOverlap,
		retry:         retry,
		extract:       ExtractPages,
	}
}

// IngestDocument implements IngestionService. Stages run strictly in order;
// a failure aborts the pipeline with a stage-tagged error and leaves no
// user-visible partial state (the conversation record is only written after
// a successful upsert).
func (s *ingestionServiceImpl) IngestDocument(ctx context.Context, chatID string, pdf []byte, pdfName string) (*IngestStats, error) {
	// Received
	if chatID == "" {
		return nil, stageErr(StageReceived, fmt.Errorf("%w: missing chat id", ErrInvalidRequest))
	}
	if len(pdf) == 0 {
		return nil, stageErr(StageReceived, fmt.Errorf("%w: missing document payload", ErrInvalidRequest))
	}

	// Extracting
	pages, err := s.extract(pdf)
	if err != nil {
		return nil, stageErr(StageExtracting, err)
	}
	log.Printf("INGEST: Extracted %d pages from '%s' for chat %s", len(pages), pdfName, chatID)

	// Chunking
	chunks, err := ChunkPages(pages, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return nil, stageErr(StageChunking, err)
	}
	if len(chunks) == 0 {
		return nil, stageErr(StageChunking, fmt.Errorf("%w: no chunks after normalization", ErrEmptyDocument))
	}
	log.Printf("INGEST: Split '%s' into %d chunks", pdfName, len(chunks))

	// Embedding
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := s.embedWithRetry(ctx, texts)
	if err != nil {
		return nil, stageErr(StageEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return nil, stageErr(StageEmbedding, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingService, len(chunks), len(vectors)))
	}

	// Upserting
	entries := make([]models.IndexEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = models.IndexEntry{
			ID:         uuid.New().String(),
			Vector:     vectors[i],
			Text:       chunk.Text,
			PageNumber: chunk.PageNumber,
		}
	}
	namespace := NamespaceForChat(chatID)
	if err := s.index.Upsert(ctx, namespace, entries); err != nil {
		return nil, stageErr(StageUpserting, err)
	}

	// Persisted
	if err := s.conversations.UpdateConversation(ctx, chatID, pdfName, strings.Join(texts, "\n\n")); err != nil {
		return nil, stageErr(StagePersisting, err)
	}

	log.Printf("INGEST: Document '%s' indexed into namespace %s (%d pages, %d chunks)", pdfName, namespace, len(pages), len(entries))
	return &IngestStats{Pages: len(pages), Chunks: len(entries)}, nil
}

// embedWithRetry makes bounded attempts against the embedding service. A
// batch job can afford to wait out a transient outage, unlike the query path
// in RetrievalService which fails fast.
func (s *ingestionServiceImpl) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		if attempt > 1 && s.retry.Backoff != nil {
			select {
			case <-time.After(s.retry.Backoff(attempt - 1)):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, ctx.Err())
			}
		}

		vectors, err := s.embedder.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		log.Printf("INGEST WARN: embedding attempt %d/%d failed: %v", attempt, s.retry.Attempts, err)
	}
	return nil, lastErr
}

// ReplaceDocument implements IngestionService.
func (s *ingestionServiceImpl) ReplaceDocument(ctx context.Context, chatID string, pdf []byte, pdfName string) (*IngestStats, error) {
	if chatID == "" {
		return nil, stageErr(StageReceived, fmt.Errorf("%w: missing chat id", ErrInvalidRequest))
	}
	if err := s.index.DeleteNamespace(ctx, NamespaceForChat(chatID)); err != nil {
		return nil, stageErr(StageUpserting, err)
	}
	return s.IngestDocument(ctx, chatID, pdf, pdfName)
}

// RemoveDocument implements IngestionService.
func (s *ingestionServiceImpl) RemoveDocument(ctx context.Context, chatID string) error {
	if chatID == "" {
		return fmt.Errorf("%w: missing chat id", ErrInvalidRequest)
	}
	if err := s.index.DeleteNamespace(ctx, NamespaceForChat(chatID)); err != nil {
		return err
	}
	if err := s.conversations.ClearConversationContext(ctx, chatID); err != nil {
		return err
	}
	log.Printf("INGEST: Removed document from chat %s", chatID)
	return nil
}
