package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// DefaultTitanModelID is the Bedrock model used when none is configured.
const DefaultTitanModelID = "amazon.titan-embed-text-v1"

// titanDimensions is the output dimension of amazon.titan-embed-text-v1.
const titanDimensions = 1536

// BedrockInvoker is the slice of the Bedrock runtime client the embedder
// needs. *bedrockruntime.Client satisfies it.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// TitanEmbedder implements rag.Embedder using an Amazon Titan embedding
// model on the Bedrock runtime. Titan accepts one input per invocation, so
// batches are embedded with one call per text.
type TitanEmbedder struct {
	// client invokes the Bedrock model.
	client BedrockInvoker
	// modelID is the Bedrock embedding model identifier.
	modelID string
}

// NewTitanEmbedder constructs a TitanEmbedder. An empty modelID selects
// DefaultTitanModelID.
func NewTitanEmbedder(client BedrockInvoker, modelID string) *TitanEmbedder {
	if modelID == "" {
		modelID = DefaultTitanModelID
	}
	return &TitanEmbedder{client: client, modelID: modelID}
}

// titanEmbedRequest is the JSON body sent to the Titan embedding model.
type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

// titanEmbedResponse is the JSON body returned by the Titan embedding model.
type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed converts a batch of texts into their corresponding embeddings. The
// returned slice is parallel to the input slice. Empty or whitespace-only
// input is rejected before any transport call.
func (e *TitanEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, &EmbeddingError{Backend: "titan", Err: errors.New("cannot embed empty text")}
		}

		body, err := json.Marshal(titanEmbedRequest{InputText: text})
		if err != nil {
			return nil, &EmbeddingError{Backend: "titan", Err: err}
		}

		out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(e.modelID),
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
			Body:        body,
		})
		if err != nil {
			return nil, &EmbeddingError{Backend: "titan", Err: err}
		}

		var parsed titanEmbedResponse
		if err := json.Unmarshal(out.Body, &parsed); err != nil {
			return nil, &EmbeddingError{Backend: "titan", Err: err}
		}
		if len(parsed.Embedding) == 0 {
			return nil, &EmbeddingError{Backend: "titan", Err: errors.New("response carried no embedding")}
		}

		embeddings[i] = parsed.Embedding
	}
	return embeddings, nil
}
