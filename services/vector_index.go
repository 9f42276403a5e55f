package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github/vikram-s/docchat/models"
)

// chromaCallTimeout caps every ChromaDB round trip so a hung server cannot
// stall the pipeline.
const chromaCallTimeout = 30 * time.Second

// VectorIndex is the namespaced vector database boundary. Namespaces are
// hard isolation: a query never returns entries from another namespace.
type VectorIndex interface {
	// Upsert writes entries into the namespace, creating it on first use.
	// Re-upserting an existing id overwrites that entry.
	Upsert(ctx context.Context, namespace string, entries []models.IndexEntry) error
	// Query returns at most topK results ranked by descending similarity.
	// An empty or absent namespace yields an empty result, not an error.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.SearchResult, error)
	// DeleteNamespace removes every entry under the namespace. Deleting a
	// namespace that does not exist is a no-op.
	DeleteNamespace(ctx context.Context, namespace string) error
}

// ChromaIndex implements VectorIndex on ChromaDB, mapping each namespace to
// its own collection.
type ChromaIndex struct {
	client chromago.Client
}

func NewChromaIndex(client chromago.Client) *ChromaIndex {
	return &ChromaIndex{client: client}
}

func (c *ChromaIndex) collection(ctx context.Context, namespace string) (chromago.Collection, error) {
	collection, err := c.client.GetOrCreateCollection(
		ctx,
		namespace,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("created_by", "docchat"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: get or create collection %q: %v", ErrVectorIndex, namespace, err)
	}
	return collection, nil
}

// Upsert implements VectorIndex.
func (c *ChromaIndex) Upsert(ctx context.Context, namespace string, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, chromaCallTimeout)
	defer cancel()
	collection, err := c.collection(ctx, namespace)
	if err != nil {
		return err
	}

	ids := make([]chromago.DocumentID, 0, len(entries))
	texts := make([]string, 0, len(entries))
	vectors := make([]embeddings.Embedding, 0, len(entries))
	metadatas := make([]chromago.DocumentMetadata, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, chromago.DocumentID(entry.ID))
		texts = append(texts, entry.Text)
		vectors = append(vectors, embeddings.NewEmbeddingFromFloat32(entry.Vector))
		metadatas = append(metadatas, chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("text", entry.Text),
			chromago.NewIntAttribute("page", int64(entry.PageNumber)),
		))
	}

	err = collection.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(vectors...),
		chromago.WithMetadatas(metadatas...),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %d entries into %q: %v", ErrVectorIndex, len(entries), namespace, err)
	}
	return nil
}

// Query implements VectorIndex. Chroma reports distances; they are converted
// to similarities (1 - distance) so higher always means more relevant.
func (c *ChromaIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	ctx, cancel := context.WithTimeout(ctx, chromaCallTimeout)
	defer cancel()
	collection, err := c.collection(ctx, namespace)
	if err != nil {
		return nil, err
	}

	results, err := collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(topK),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query %q: %v", ErrVectorIndex, namespace, err)
	}

	var out []models.SearchResult
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}

	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}
		result := models.SearchResult{Text: doc.ContentString()}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			result.PageNumber = pageFromMetadata(metadataGroups[0][i])
		}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			result.Score = 1 - float32(distanceGroups[0][i])
		}
		out = append(out, result)
	}
	return out, nil
}

// DeleteNamespace implements VectorIndex. The collection is created if
// missing so deletion is always a clean no-op for absent namespaces.
func (c *ChromaIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	ctx, cancel := context.WithTimeout(ctx, chromaCallTimeout)
	defer cancel()
	if _, err := c.collection(ctx, namespace); err != nil {
		return err
	}
	if err := c.client.DeleteCollection(ctx, namespace); err != nil {
		return fmt.Errorf("%w: delete collection %q: %v", ErrVectorIndex, namespace, err)
	}
	return nil
}

// pageFromMetadata digs the page number out of a Chroma document metadata.
// The DocumentMetadata struct exposes no direct accessor for a map view, so
// it is round-tripped through JSON the same way the rest of the codebase
// reads Chroma metadata.
func pageFromMetadata(metadata chromago.DocumentMetadata) int {
	if metadata == nil {
		return 0
	}
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		log.Printf("WARN: could not marshal document metadata: %v", err)
		return 0
	}
	var metaMap map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &metaMap); err != nil {
		log.Printf("WARN: could not unmarshal document metadata: %v", err)
		return 0
	}
	if page, ok := metaMap["page"].(float64); ok {
		return int(page)
	}
	return 0
}
