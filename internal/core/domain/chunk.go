package domain

// VectorChunk is one retrieved slice of embedded text. ChunkID is derived
// deterministically from the source URL and chunk index, so re-embedding the
// same document yields the same ids.
type VectorChunk struct {
	ChunkID         string            `json:"chunk_id"`
	Content         string            `json:"content"`
	URL             string            `json:"url"`
	Title           string            `json:"title"`
	SimilarityScore float64           `json:"similarity_score"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// VectorDocument is the ingest-side shape for the vector store.
type VectorDocument struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}
