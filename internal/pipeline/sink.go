package pipeline

import (
	"context"
	"sync"

	"github.com/extropic-systems/ragcore/internal/metastore"
	"github.com/extropic-systems/ragcore/internal/searchcluster"
	"github.com/extropic-systems/ragcore/internal/vectorindex"
)

// IndexSink receives embedded chunks from ingest. Implementations decide
// where they land: the local flat index plus metadata store, or a managed
// search cluster.
type IndexSink interface {
	Put(ctx context.Context, chunk string, vector []float32, source string) error
}

// LocalSink pairs a flat vector index with its metadata store. Every vector
// insertion is immediately followed by the matching metadata append under
// one lock, so the slot pairing holds even if callers ingest concurrently.
type LocalSink struct {
	mu    sync.Mutex
	index *vectorindex.Flat
	meta  *metastore.Store
}

// NewLocalSink constructs a LocalSink over the given index and store. The
// two must already be aligned; an index with more entries than the store
// (or vice versa) would misattribute every later chunk.
func NewLocalSink(index *vectorindex.Flat, meta *metastore.Store) *LocalSink {
	return &LocalSink{index: index, meta: meta}
}

// Put inserts the vector and appends the matching record. A dimension
// mismatch fails before anything is stored, leaving the pairing intact.
func (s *LocalSink) Put(ctx context.Context, chunk string, vector []float32, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.index.Add(vector); err != nil {
		return err
	}
	s.meta.Append(metastore.Record{Chunk: chunk, Source: source})
	return nil
}

// Index returns the underlying flat index.
func (s *LocalSink) Index() *vectorindex.Flat { return s.index }

// Meta returns the underlying metadata store.
func (s *LocalSink) Meta() *metastore.Store { return s.meta }

// ClusterSink writes embedded chunks to a managed search cluster.
type ClusterSink struct {
	client *searchcluster.Client
}

// NewClusterSink constructs a ClusterSink over the given cluster client.
func NewClusterSink(client *searchcluster.Client) *ClusterSink {
	return &ClusterSink{client: client}
}

// Put indexes the chunk as a cluster document.
func (s *ClusterSink) Put(ctx context.Context, chunk string, vector []float32, source string) error {
	return s.client.IndexChunk(ctx, chunk, vector, source)
}
