package rag

import (
	"context"
	"fmt"

	"github.com/extropic-systems/ragcore/internal/metastore"
	"github.com/extropic-systems/ragcore/internal/searchcluster"
)

// ClusterSearcher is the slice of the search-cluster client the cluster
// retriever needs.
type ClusterSearcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]searchcluster.Hit, error)
}

// ClusterRetriever implements Retriever over a managed search cluster. The
// cluster stores chunk and source alongside each vector, so no local
// metadata store is involved.
type ClusterRetriever struct {
	// embedder converts the question to a query vector.
	embedder Embedder

	// cluster performs the k-NN search remotely.
	cluster ClusterSearcher

	// defaultTopK is the result count used when the caller passes k <= 0.
	defaultTopK int
}

// NewClusterRetriever constructs a ClusterRetriever.
func NewClusterRetriever(embedder Embedder, cluster ClusterSearcher, defaultTopK int) (*ClusterRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if cluster == nil {
		return nil, fmt.Errorf("rag: cluster searcher must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &ClusterRetriever{
		embedder:    embedder,
		cluster:     cluster,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the question and returns the cluster's hits in the
// engine's ranked order. Embedding and transport errors propagate unchanged.
func (r *ClusterRetriever) Retrieve(ctx context.Context, question string, k int) ([]ScoredRecord, error) {
	if k <= 0 {
		k = r.defaultTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned no vector for question")
	}

	hits, err := r.cluster.Search(ctx, embeddings[0], k)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredRecord, 0, len(hits))
	for _, hit := range hits {
		results = append(results, ScoredRecord{
			Record: metastore.Record{Chunk: hit.Chunk, Source: hit.Source},
			Score:  hit.Score,
		})
	}
	return results, nil
}
