// Package embedder provides implementations of the rag.Embedder interface
// for converting text into dense vector embeddings. The primary backend is
// Amazon Titan via the Bedrock runtime; OpenAI is available as an
// alternative. Rate limiting and retries are not handled here; the ingest
// pipeline owns pacing, and failures are surfaced as *EmbeddingError so the
// caller can decide.
package embedder

import "fmt"

// EmbeddingError reports a failed embedding call: transport failure,
// malformed response, or empty input. The caller decides whether to skip
// (ingest) or fail the request (query).
type EmbeddingError struct {
	// Backend names the embedding backend ("titan", "openai").
	Backend string
	// Err is the underlying cause.
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedder: %s: %v", e.Backend, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
