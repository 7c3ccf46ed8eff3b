package rag

import (
	"context"
	"fmt"
)

// LocalRetriever implements Retriever over the in-process flat index and its
// paired metadata store. It embeds the question at retrieval time, searches
// the index, and maps each returned slot to its record.
type LocalRetriever struct {
	// embedder converts the question to a query vector.
	embedder Embedder

	// index performs the nearest-neighbor search.
	index Searcher

	// records resolves slots to chunk metadata.
	records RecordSource

	// defaultTopK is the result count used when the caller passes k <= 0.
	defaultTopK int
}

// NewLocalRetriever constructs a LocalRetriever. defaultTopK sets the
// fallback result count when Retrieve is called with k <= 0.
func NewLocalRetriever(embedder Embedder, index Searcher, records RecordSource, defaultTopK int) (*LocalRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if records == nil {
		return nil, fmt.Errorf("rag: record source must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &LocalRetriever{
		embedder:    embedder,
		index:       index,
		records:     records,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the question, searches the index, and resolves the hits in
// the index's ranked order. Errors from the embedder, index, or record
// source propagate unchanged: a record-source failure for a slot the index
// returned means the index/metadata pairing was broken and is not masked.
func (r *LocalRetriever) Retrieve(ctx context.Context, question string, k int) ([]ScoredRecord, error) {
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

	hits, err := r.index.Search(embeddings[0], k)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredRecord, 0, len(hits))
	for _, hit := range hits {
		rec, err := r.records.Get(hit.Slot)
		if err != nil {
			return nil, err
		}
		results = append(results, ScoredRecord{Record: rec, Score: hit.Distance})
	}
	return results, nil
}
