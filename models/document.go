package models

// PageText is the plain text extracted from a single PDF page.
type PageText struct {
	Text       string
	PageNumber int
}

// Chunk is a bounded span of page text, the unit of embedding.
// SourceOffset is the chunk's position within its page.
type Chunk struct {
	Text         string
	PageNumber   int
	SourceOffset int
}

// IndexEntry is the persisted (id, vector, metadata) triple stored in the
// vector index. IDs are unique within a namespace; re-upserting an existing
// id overwrites the entry.
type IndexEntry struct {
	ID         string
	Vector     []float32
	Text       string
	PageNumber int
}

// SearchResult is a retrieved chunk with its similarity score.
// Higher score means more relevant.
type SearchResult struct {
	Text       string  `json:"text"`
	PageNumber int     `json:"page_number"`
	Score      float32 `json:"score"`
}
