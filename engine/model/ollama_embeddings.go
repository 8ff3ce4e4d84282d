package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// OllamaEmbeddings implements EmbeddingsProvider against a local Ollama
// server. The /api/embeddings endpoint takes one prompt per call, so a
// batch request becomes one POST per input.
type OllamaEmbeddings struct {
	http  *httpClient
	model string
}

// NewOllamaEmbeddings creates an Ollama embeddings provider. Empty
// arguments fall back to a local instance and nomic-embed-text.
func NewOllamaEmbeddings(baseURL, modelID string) *OllamaEmbeddings {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelID == "" {
		modelID = "nomic-embed-text"
	}
	return &OllamaEmbeddings{
		http:  newHTTPClient(baseURL, 0, nil),
		model: modelID,
	}
}

func (o *OllamaEmbeddings) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = o.model
	}

	embeddings := make([][]float32, 0, len(req.Input))
	for _, text := range req.Input {
		vec, err := o.embedOne(ctx, modelID, text)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, vec)
	}
	return &EmbeddingResponse{Embeddings: embeddings}, nil
}

func (o *OllamaEmbeddings) embedOne(ctx context.Context, modelID, text string) ([]float32, error) {
	body := map[string]any{
		"model":  modelID,
		"prompt": text,
	}
	resp, err := o.http.post(ctx, "/api/embeddings", body)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embeddings: %s", readErrorBody(resp))
	}

	var raw ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("ollama embeddings decode: %w", err)
	}
	return raw.Embedding, nil
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}
