package models

// IngestResponse reports what a successful document ingestion produced.
type IngestResponse struct {
	Message string `json:"message"`
	PDFName string `json:"pdf_name"`
	Pages   int    `json:"pages"`
	Chunks  int    `json:"chunks"`
}

// ChatResponse is the assistant reply for a single chat message. HasContext
// reports whether the answer was grounded in retrieved document content.
type ChatResponse struct {
	Answer     string         `json:"answer"`
	HasContext bool           `json:"has_context"`
	Sources    []SearchResult `json:"sources,omitempty"`
	Error      string         `json:"error,omitempty"`
}
