package models

// OllamaEmbedRequest is the request body for Ollama's batch /api/embed endpoint.
type OllamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// OllamaEmbedResponse carries one vector per input text, in the same order.
type OllamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}
