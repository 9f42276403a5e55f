package services

import (
	"errors"
	"fmt"
)

// Error taxonomy for the ingestion/retrieval core. Callers branch with
// errors.Is; the controller maps these onto HTTP statuses.
var (
	// ErrInvalidRequest indicates missing required input (no file, no chat id,
	// no query text). Never retried.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmptyDocument indicates a document with no extractable text after
	// normalization.
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrExtraction indicates the PDF could not be read or parsed.
	ErrExtraction = errors.New("document extraction failed")

	// ErrEmbeddingService indicates the embedding provider failed or returned
	// a malformed payload.
	ErrEmbeddingService = errors.New("embedding service failure")

	// ErrVectorIndex indicates an upsert/query/delete against the vector
	// index failed.
	ErrVectorIndex = errors.New("vector index failure")

	// ErrGeneration indicates chat completion failed after exhausting retries.
	ErrGeneration = errors.New("chat completion failed")
)

// Ingestion stage names, reported on pipeline failure.
const (
	StageReceived   = "received"
	StageExtracting = "extracting"
	StageChunking   = "chunking"
	StageEmbedding  = "embedding"
	StageUpserting  = "upserting"
	StagePersisting = "persisting"
)

// StageError tags an ingestion failure with the pipeline stage it occurred in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingestion failed at stage %q: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}
