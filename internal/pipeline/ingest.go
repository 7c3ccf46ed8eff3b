// Package pipeline wires the stages together: ingest walks a document
// store, chunks, embeds, and indexes; answer retrieves context, assembles
// the prompt, and calls the generation model. The pipeline owns pacing and
// the skip-and-continue policy for per-chunk failures; the stages it
// composes stay policy-free.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/extropic-systems/ragcore/internal/chunker"
	"github.com/extropic-systems/ragcore/internal/docstore"
	"github.com/extropic-systems/ragcore/internal/embedder"
	"github.com/extropic-systems/ragcore/internal/logging"
	"github.com/extropic-systems/ragcore/internal/rag"
	"github.com/extropic-systems/ragcore/internal/searchcluster"
	"github.com/extropic-systems/ragcore/internal/vectorindex"
)

// DefaultMinChunkChars is the minimum chunk length worth embedding. Shorter
// fragments are boilerplate or chunking artifacts and only add noise to
// retrieval.
const DefaultMinChunkChars = 20

// DefaultPaceInterval limits embedding calls to five per second, matching
// the pacing the embedding backends tolerate without throttling.
const DefaultPaceInterval = rate.Limit(5)

// IngestConfig configures one ingest run.
type IngestConfig struct {
	// Chunking selects the chunking policy and window geometry.
	Chunking chunker.Config
	// MinChunkChars drops chunks shorter than this many characters
	// (default: DefaultMinChunkChars). Negative disables the filter.
	MinChunkChars int
	// MaxFiles caps how many documents are ingested; zero means all.
	MaxFiles int
	// Pace overrides the embedding-call rate limit; zero selects
	// DefaultPaceInterval.
	Pace rate.Limit
}

// IngestStats summarizes an ingest run.
type IngestStats struct {
	// Files is the number of documents processed.
	Files int
	// Chunks is the number of chunks embedded and indexed.
	Chunks int
	// SkippedShort counts chunks dropped by the length filter.
	SkippedShort int
	// SkippedFailed counts chunks dropped after an embedding or indexing
	// failure.
	SkippedFailed int
}

// Ingester runs the ingest pipeline: list documents, chunk, embed, index.
type Ingester struct {
	store    docstore.ObjectStore
	embedder rag.Embedder
	sink     IndexSink
	cfg      IngestConfig
	limiter  *rate.Limiter
}

// NewIngester constructs an Ingester. All three collaborators are required.
func NewIngester(store docstore.ObjectStore, emb rag.Embedder, sink IndexSink, cfg IngestConfig) (*Ingester, error) {
	if store == nil || emb == nil || sink == nil {
		return nil, errors.New("pipeline: ingester requires a store, an embedder, and a sink")
	}
	if cfg.MinChunkChars == 0 {
		cfg.MinChunkChars = DefaultMinChunkChars
	}
	pace := cfg.Pace
	if pace == 0 {
		pace = DefaultPaceInterval
	}
	return &Ingester{
		store:    store,
		embedder: emb,
		sink:     sink,
		cfg:      cfg,
		limiter:  rate.NewLimiter(pace, 1),
	}, nil
}

// Run ingests every listed document. Per-chunk failures (embedding errors,
// dimension mismatches, cluster transport errors) are logged and skipped so
// one bad chunk cannot abort a long run; anything else, including context
// cancellation, stops the run with the partial stats.
func (in *Ingester) Run(ctx context.Context) (IngestStats, error) {
	log := logging.FromContext(ctx)
	var stats IngestStats

	keys, err := in.store.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("pipeline: list documents: %w", err)
	}
	if in.cfg.MaxFiles > 0 && len(keys) > in.cfg.MaxFiles {
		keys = keys[:in.cfg.MaxFiles]
	}
	log.Info("ingest starting", "documents", len(keys), "policy", in.cfg.Chunking.Policy.String())

	for _, key := range keys {
		if err := in.ingestDocument(ctx, key, &stats); err != nil {
			return stats, err
		}
		stats.Files++
	}

	log.Info("ingest finished",
		"files", stats.Files,
		"chunks", stats.Chunks,
		"skipped_short", stats.SkippedShort,
		"skipped_failed", stats.SkippedFailed,
	)
	return stats, nil
}

func (in *Ingester) ingestDocument(ctx context.Context, key string, stats *IngestStats) error {
	log := logging.FromContext(ctx)

	data, err := in.store.Fetch(ctx, key)
	if err != nil {
		return fmt.Errorf("pipeline: fetch %s: %w", key, err)
	}

	chunks, err := chunker.Split(string(data), in.cfg.Chunking)
	if err != nil {
		return fmt.Errorf("pipeline: chunk %s: %w", key, err)
	}

	for _, ch := range chunks {
		if utf8.RuneCountInString(ch.Text) < in.cfg.MinChunkChars {
			stats.SkippedShort++
			continue
		}

		if err := in.limiter.Wait(ctx); err != nil {
			return err
		}

		vecs, err := in.embedder.Embed(ctx, []string{ch.Text})
		if err != nil {
			if skippable(err) {
				log.Warn("skipping chunk: embed failed", "source", key, "ordinal", ch.Ordinal, "error", err)
				stats.SkippedFailed++
				continue
			}
			return fmt.Errorf("pipeline: embed %s chunk %d: %w", key, ch.Ordinal, err)
		}
		if len(vecs) == 0 {
			log.Warn("skipping chunk: embedder returned no vector", "source", key, "ordinal", ch.Ordinal)
			stats.SkippedFailed++
			continue
		}

		if err := in.sink.Put(ctx, ch.Text, vecs[0], key); err != nil {
			if skippable(err) {
				log.Warn("skipping chunk: index failed", "source", key, "ordinal", ch.Ordinal, "error", err)
				stats.SkippedFailed++
				continue
			}
			return fmt.Errorf("pipeline: index %s chunk %d: %w", key, ch.Ordinal, err)
		}
		stats.Chunks++
	}
	return nil
}

// skippable reports whether a per-chunk failure should be logged and skipped
// rather than aborting the run. Context cancellation is never skippable.
func skippable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var embErr *embedder.EmbeddingError
	var dimErr *vectorindex.DimensionError
	var transportErr *searchcluster.TransportError
	return errors.As(err, &embErr) || errors.As(err, &dimErr) || errors.As(err, &transportErr)
}
