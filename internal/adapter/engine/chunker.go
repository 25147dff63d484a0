package engine

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

// splitIntoChunks cuts text into fixed rune windows with the trailing
// overlap carried into the next chunk. The final chunk may be shorter than
// size. Windows count runes, not bytes, so multi-byte characters never
// straddle a boundary.
func splitIntoChunks(text string, size, overlap int) []string {
	if size <= 0 {
		size = constants.DefaultChunkSize
	}
	if overlap < 0 {
		overlap = constants.DefaultChunkOverlap
	}
	if overlap >= size {
		// The step size-overlap must stay positive whatever the caller
		// configured, or the loop below never advances.
		overlap = size / 5
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size - overlap {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// chunkDocuments turns scraped pages into vector store documents. Chunk ids
// hash the URL and index, so re-running the same query re-embeds in place
// instead of duplicating rows.
func chunkDocuments(query string, scraped []domain.ScrapedContent, size, overlap int) []domain.VectorDocument {
	var docs []domain.VectorDocument
	for _, content := range scraped {
		for i, chunk := range splitIntoChunks(content.Content, size, overlap) {
			docs = append(docs, domain.VectorDocument{
				ID:   chunkID(content.URL, i),
				Text: chunk,
				Metadata: map[string]string{
					"url":         content.URL,
					"title":       content.Title,
					"chunk_index": strconv.Itoa(i),
					"query":       query,
				},
			})
		}
	}
	return docs
}

func chunkID(url string, index int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d", url, index)))
	return hex.EncodeToString(sum[:])
}
