// Package rag defines the retrieval interfaces and composes them into
// retrievers: given a natural-language question, embed it, search a vector
// index, and resolve the hits to their chunk metadata. Two retriever
// variants exist, one over the local flat index and metadata store and one
// over a managed search cluster, so the pipeline layer never depends on a
// specific backend.
package rag

import (
	"context"

	"github.com/extropic-systems/ragcore/internal/metastore"
	"github.com/extropic-systems/ragcore/internal/vectorindex"
)

// Embedder converts text into dense vector embeddings.
// The returned slice is parallel to the input slice.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher is the slice of the vector index the local retriever needs.
type Searcher interface {
	Search(query []float32, k int) ([]vectorindex.Result, error)
}

// RecordSource resolves index slots to their chunk metadata.
type RecordSource interface {
	Get(slot int) (metastore.Record, error)
}

// ScoredRecord is one retrieval hit: the chunk metadata plus the score the
// backend ranked it by. For the local index the score is the metric distance
// (ascending, smaller = more similar); for the search cluster it is the
// engine's relevance score, kept in the engine's ranked order.
type ScoredRecord struct {
	// Record is the chunk text and source key.
	Record metastore.Record

	// Score is the ranking score assigned by the backend.
	Score float32
}

// Retriever returns the top-k most relevant chunks for a question, best
// match first. Implementations must not re-sort backend results and must
// propagate embedding and search errors unchanged so callers see failures.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]ScoredRecord, error)
}
