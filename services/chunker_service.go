package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github/vikram-s/docchat/models"
)

// Default chunking parameters. The overlap keeps matches that span a chunk
// boundary from being lost.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// ChunkPages splits extracted page text into overlapping chunks of at most
// chunkSize characters. Each page is chunked independently so overlap never
// crosses a page boundary and page provenance stays exact. Pure function;
// whitespace-only pages produce no chunks, and an all-empty input returns an
// empty slice for the caller to reject.
func ChunkPages(pages []models.PageText, chunkSize, chunkOverlap int) ([]models.Chunk, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidRequest, chunkOverlap, chunkSize)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	var chunks []models.Chunk
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		parts, err := splitter.SplitText(text)
		if err != nil {
			// A page that cannot be split is skipped, not fatal for the document.
			log.Printf("CHUNK WARN: could not split page %d: %v", page.PageNumber, err)
			continue
		}
		offset := 0
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				Text:         part,
				PageNumber:   page.PageNumber,
				SourceOffset: offset,
			})
			offset++
		}
	}
	return chunks, nil
}
