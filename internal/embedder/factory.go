package embedder

import (
	"context"
	"fmt"
	"os"
	"strconv"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/extropic-systems/ragcore/internal/rag"
)

// DefaultDimensions returns the embedding vector size for the given backend.
// Callers that pre-size a vector index should use this rather than
// hardcoding a value. EMBEDDING_DIMENSIONS always takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case "openai":
		return defaultOpenAIDimensions
	default:
		return titanDimensions
	}
}

// NewFromEnv constructs a rag.Embedder from environment variables.
//
//	EMBEDDING_PROVIDER   = bedrock | openai (default: bedrock)
//	EMBEDDING_MODEL      overrides the default model for the backend
//	EMBEDDING_DIMENSIONS overrides the default vector size
//
//	Bedrock: AWS credential chain, AWS_REGION (default: us-east-1)
//	OpenAI:  OPENAI_API_KEY
func NewFromEnv(ctx context.Context) (rag.Embedder, error) {
	backend := getEnvOrDefault("EMBEDDING_PROVIDER", "bedrock")

	switch backend {
	case "bedrock":
		region := getEnvOrDefault("AWS_REGION", "us-east-1")
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("embedder: load AWS config: %w", err)
		}
		model := getEnvOrDefault("EMBEDDING_MODEL", DefaultTitanModelID)
		return NewTitanEmbedder(bedrockruntime.NewFromConfig(awsCfg), model), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			APIKey: apiKey,
			Model:  os.Getenv("EMBEDDING_MODEL"),
		})

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid values: bedrock, openai)", backend)
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
