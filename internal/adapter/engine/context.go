package engine

import (
	"fmt"
	"strings"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

// buildChunkContext renders retrieved chunks as numbered sources for the
// synthesis prompt.
func buildChunkContext(chunks []domain.VectorChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("Source [%d]: %s\nURL: %s\nContent: %s\n",
			i+1, chunk.Title, chunk.URL, chunk.Content))
	}
	return strings.Join(parts, "\n\n")
}

// buildResultContext renders search results, substituting scraped page text
// for the snippet when a successful scrape of the same URL exists. Scraped
// text is capped so one long page cannot crowd out the other sources.
func buildResultContext(results []domain.SearchResult, scraped []domain.ScrapedContent) string {
	byURL := make(map[string]string, len(scraped))
	for _, s := range scraped {
		if s.Success {
			byURL[s.URL] = s.Content
		}
	}

	parts := make([]string, 0, len(results))
	for i, result := range results {
		content := result.Description
		if text, ok := byURL[result.URL]; ok {
			if len(text) > constants.DefaultScrapedContextBudget {
				text = text[:constants.DefaultScrapedContextBudget]
			}
			content = text
		}
		parts = append(parts, fmt.Sprintf("Source [%d]: %s\nURL: %s\nContent: %s\n",
			i+1, result.Title, result.URL, content))
	}
	return strings.Join(parts, "\n\n")
}
