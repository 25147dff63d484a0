package vectorstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

type storedDoc struct {
	doc    domain.VectorDocument
	vector map[string]float64
}

// Memory is an in-process vector store backed by bag-of-words cosine
// similarity. It exists for single-node deployments and tests where the
// embedding sidecar is not running; scores are deterministic for a given
// corpus.
type Memory struct {
	docs *xsync.Map[string, storedDoc]
}

func NewMemory() *Memory {
	return &Memory{docs: xsync.NewMap[string, storedDoc]()}
}

func (m *Memory) Embed(_ context.Context, docs []domain.VectorDocument) error {
	for _, doc := range docs {
		m.docs.Store(doc.ID, storedDoc{doc: doc, vector: termVector(doc.Text)})
	}
	return nil
}

func (m *Memory) Query(_ context.Context, queryText string, topK int) ([]domain.VectorChunk, error) {
	queryVec := termVector(queryText)

	chunks := make([]domain.VectorChunk, 0)
	m.docs.Range(func(id string, stored storedDoc) bool {
		score := cosine(queryVec, stored.vector)
		if score <= 0 {
			return true
		}
		chunks = append(chunks, domain.VectorChunk{
			ChunkID:         id,
			Content:         stored.doc.Text,
			URL:             stored.doc.Metadata["url"],
			Title:           stored.doc.Metadata["title"],
			SimilarityScore: score,
			Metadata:        stored.doc.Metadata,
		})
		return true
	})

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].SimilarityScore != chunks[j].SimilarityScore {
			return chunks[i].SimilarityScore > chunks[j].SimilarityScore
		}
		return chunks[i].ChunkID < chunks[j].ChunkID
	})
	if topK > 0 && len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

func (m *Memory) Len() int {
	return m.docs.Size()
}

func termVector(text string) map[string]float64 {
	vec := make(map[string]float64)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len(w) > 1 {
			vec[w]++
		}
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for term, wa := range a {
		normA += wa * wa
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range b {
		normB += wb * wb
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
