package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/extropic-systems/ragcore/internal/chunker"
	"github.com/extropic-systems/ragcore/internal/docstore"
	"github.com/extropic-systems/ragcore/internal/embedder"
	"github.com/extropic-systems/ragcore/internal/metastore"
	"github.com/extropic-systems/ragcore/internal/vectorindex"
)

// fakeEmbedder returns a fixed-dimension vector derived from the text
// length. failOn, when set, fails texts containing that substring.
type fakeEmbedder struct {
	dim    int
	failOn string
	// fatal switches failures from EmbeddingError to a plain error.
	fatal bool
	// empty makes Embed return no vectors at all with a nil error.
	empty bool
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.empty {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if f.failOn != "" && strings.Contains(text, f.failOn) {
			if f.fatal {
				return nil, errors.New("backend exploded")
			}
			return nil, &embedder.EmbeddingError{Backend: "fake", Err: errors.New("throttled")}
		}
		vec := make([]float32, f.dim)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func newLocalSink(t *testing.T, dim int) *LocalSink {
	t.Helper()
	index, err := vectorindex.NewFlat(dim, vectorindex.MetricSquaredL2)
	if err != nil {
		t.Fatal(err)
	}
	return NewLocalSink(index, metastore.New())
}

func windowConfig(maxWords, overlap int) IngestConfig {
	return IngestConfig{
		Chunking: chunker.Config{Policy: chunker.PolicyWindow, MaxWords: maxWords, Overlap: overlap},
		Pace:     rate.Inf,
	}
}

func Test_LocalSink_PairsVectorAndRecord(t *testing.T) {
	t.Parallel()

	sink := newLocalSink(t, 2)
	if err := sink.Put(context.Background(), "some chunk", []float32{1, 2}, "a.txt"); err != nil {
		t.Fatalf("put: %v", err)
	}

	if sink.Index().Len() != 1 || sink.Meta().Len() != 1 {
		t.Fatalf("pairing broken: index %d, meta %d", sink.Index().Len(), sink.Meta().Len())
	}
	rec, err := sink.Meta().Get(0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Chunk != "some chunk" || rec.Source != "a.txt" {
		t.Errorf("record = %+v", rec)
	}
}

func Test_LocalSink_DimensionMismatchLeavesPairingIntact(t *testing.T) {
	t.Parallel()

	sink := newLocalSink(t, 2)
	err := sink.Put(context.Background(), "chunk", []float32{1, 2, 3}, "a.txt")
	var dimErr *vectorindex.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("want DimensionError, got %v", err)
	}
	if sink.Index().Len() != 0 || sink.Meta().Len() != 0 {
		t.Errorf("pairing broken after failed put: index %d, meta %d", sink.Index().Len(), sink.Meta().Len())
	}
}

func Test_Ingester_IndexesAllChunks(t *testing.T) {
	t.Parallel()

	store := docstore.NewMemoryStore(map[string][]byte{
		"a.txt": []byte(strings.Repeat("alpha beta gamma delta epsilon ", 8)),
		"b.txt": []byte(strings.Repeat("one two three four five six ", 8)),
	})
	sink := newLocalSink(t, 4)
	ing, err := NewIngester(store, &fakeEmbedder{dim: 4}, sink, windowConfig(10, 2))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	stats, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Files != 2 {
		t.Errorf("files = %d, want 2", stats.Files)
	}
	if stats.Chunks == 0 {
		t.Fatal("no chunks indexed")
	}
	if sink.Index().Len() != stats.Chunks || sink.Meta().Len() != stats.Chunks {
		t.Errorf("pairing: stats %d, index %d, meta %d", stats.Chunks, sink.Index().Len(), sink.Meta().Len())
	}
}

func Test_Ingester_SkipsShortChunks(t *testing.T) {
	t.Parallel()

	// Two one-word documents: chunks well under the 20-char floor.
	store := docstore.NewMemoryStore(map[string][]byte{
		"tiny.txt": []byte("hi"),
	})
	sink := newLocalSink(t, 4)
	cfg := windowConfig(10, 0)
	ing, err := NewIngester(store, &fakeEmbedder{dim: 4}, sink, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	stats, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Chunks != 0 || stats.SkippedShort != 1 {
		t.Errorf("stats = %+v, want the short chunk skipped", stats)
	}
}

func Test_Ingester_MaxFilesCapsRun(t *testing.T) {
	t.Parallel()

	store := docstore.NewMemoryStore(map[string][]byte{
		"a.txt": []byte("alpha beta gamma delta epsilon zeta eta theta"),
		"b.txt": []byte("alpha beta gamma delta epsilon zeta eta theta"),
		"c.txt": []byte("alpha beta gamma delta epsilon zeta eta theta"),
	})
	cfg := windowConfig(10, 0)
	cfg.MaxFiles = 2
	ing, err := NewIngester(store, &fakeEmbedder{dim: 4}, newLocalSink(t, 4), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	stats, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Files != 2 {
		t.Errorf("files = %d, want cap of 2", stats.Files)
	}
}

func Test_Ingester_SkipsChunksOnEmbeddingError(t *testing.T) {
	t.Parallel()

	store := docstore.NewMemoryStore(map[string][]byte{
		"a.txt": []byte("poison apple pie with extra words here. wholesome document text with extra words here."),
	})
	sink := newLocalSink(t, 4)
	cfg := IngestConfig{
		Chunking: chunker.Config{Policy: chunker.PolicySentence, MaxWords: 10},
		Pace:     rate.Inf,
	}
	ing, err := NewIngester(store, &fakeEmbedder{dim: 4, failOn: "poison"}, sink, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	stats, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("run should continue past skippable failures: %v", err)
	}
	if stats.SkippedFailed != 1 {
		t.Errorf("skipped_failed = %d, want 1", stats.SkippedFailed)
	}
	if stats.Chunks != 1 {
		t.Errorf("chunks = %d, want the healthy chunk indexed", stats.Chunks)
	}
}

func Test_Ingester_SkipsChunksWhenEmbedderReturnsNoVector(t *testing.T) {
	t.Parallel()

	store := docstore.NewMemoryStore(map[string][]byte{
		"a.txt": []byte("alpha beta gamma delta epsilon zeta eta theta iota kappa"),
	})
	sink := newLocalSink(t, 4)
	ing, err := NewIngester(store, &fakeEmbedder{dim: 4, empty: true}, sink, windowConfig(10, 0))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	stats, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("run should survive an empty embedder response: %v", err)
	}
	if stats.SkippedFailed != 1 {
		t.Errorf("skipped_failed = %d, want 1", stats.SkippedFailed)
	}
	if sink.Index().Len() != 0 {
		t.Errorf("index len = %d, want nothing indexed", sink.Index().Len())
	}
}

func Test_Ingester_ShortChunkFilterCountsRunes(t *testing.T) {
	t.Parallel()

	// Ten runes but thirty UTF-8 bytes: under the 20-char floor only when
	// the filter counts characters rather than bytes.
	store := docstore.NewMemoryStore(map[string][]byte{
		"ja.txt": []byte("日本語のテキストです"),
	})
	ing, err := NewIngester(store, &fakeEmbedder{dim: 4}, newLocalSink(t, 4), windowConfig(10, 0))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	stats, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Chunks != 0 || stats.SkippedShort != 1 {
		t.Errorf("stats = %+v, want the multibyte chunk counted as short", stats)
	}
}

func Test_Ingester_FatalErrorAbortsRun(t *testing.T) {
	t.Parallel()

	store := docstore.NewMemoryStore(map[string][]byte{
		"a.txt": []byte("poison apple pie with extra words here to pass the filter."),
	})
	ing, err := NewIngester(store, &fakeEmbedder{dim: 4, failOn: "poison", fatal: true}, newLocalSink(t, 4), windowConfig(20, 0))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := ing.Run(context.Background()); err == nil {
		t.Fatal("want fatal error to abort the run")
	}
}

func Test_Ingester_CancellationStopsRun(t *testing.T) {
	t.Parallel()

	store := docstore.NewMemoryStore(map[string][]byte{
		"a.txt": []byte("alpha beta gamma delta epsilon zeta eta theta iota kappa"),
	})
	ing, err := NewIngester(store, &fakeEmbedder{dim: 4}, newLocalSink(t, 4), windowConfig(10, 0))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ing.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func Test_NewIngester_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewIngester(nil, &fakeEmbedder{dim: 4}, newLocalSink(t, 4), windowConfig(10, 0)); err == nil {
		t.Error("want error for nil store")
	}
	store := docstore.NewMemoryStore(nil)
	if _, err := NewIngester(store, nil, newLocalSink(t, 4), windowConfig(10, 0)); err == nil {
		t.Error("want error for nil embedder")
	}
	if _, err := NewIngester(store, &fakeEmbedder{dim: 4}, nil, windowConfig(10, 0)); err == nil {
		t.Error("want error for nil sink")
	}
}
