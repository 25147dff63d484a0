package domain

// ScrapedContent is the outcome of one crawler fetch. Content with
// Success=false is never embedded; callers filter it before the RAG stages.
type ScrapedContent struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Markdown     string `json:"markdown,omitempty"`
	WordCount    int    `json:"word_count"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}
