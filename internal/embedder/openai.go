package embedder

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// defaultOpenAIModel is the embedding model used when none is configured.
const defaultOpenAIModel = "text-embedding-3-small"

// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
const defaultOpenAIDimensions = 1536

// OpenAIEmbedder implements rag.Embedder using the OpenAI embeddings API.
// It is safe for concurrent use.
type OpenAIEmbedder struct {
	// client is the OpenAI API client.
	client *openai.Client
	// model is the embedding model name.
	model string
}

// OpenAIConfig holds the settings for constructing an OpenAIEmbedder.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the embedding model name (default: text-embedding-3-small).
	Model string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder from the given config.
func NewOpenAIEmbedder(cfg *OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedder: openai requires an API key")
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Embed converts a batch of texts into their corresponding embeddings. The
// returned slice is parallel to the input slice.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, &EmbeddingError{Backend: "openai", Err: errors.New("cannot embed empty text")}
		}
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, &EmbeddingError{Backend: "openai", Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &EmbeddingError{Backend: "openai", Err: errors.New("response count does not match input count")}
	}

	// The API may return data out of order; place by index.
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, &EmbeddingError{Backend: "openai", Err: errors.New("response index out of range")}
		}
		vec := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			vec[i] = float32(x)
		}
		embeddings[d.Index] = vec
	}
	return embeddings, nil
}
