package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/extropic-systems/ragcore/internal/chunker"
	"github.com/extropic-systems/ragcore/internal/docstore"
	"github.com/extropic-systems/ragcore/internal/embedder"
	"github.com/extropic-systems/ragcore/internal/logging"
	"github.com/extropic-systems/ragcore/internal/metastore"
	"github.com/extropic-systems/ragcore/internal/pipeline"
	"github.com/extropic-systems/ragcore/internal/vectorindex"
)

// NewIndexCmd constructs the `ragcore index` command, which chunks and embeds
// a document corpus and writes the resulting vector index.
func NewIndexCmd() *cobra.Command {
	var (
		bucket       string
		prefix       string
		dir          string
		maxFiles     int
		indexPath    string
		metadataPath string
		chunkWords   int
		chunkOverlap int
		policyName   string
		metricName   string
		endpoint     string
		searchIndex  string
		pace         float64
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Chunk and embed a document corpus into a vector index",
		Long: `Build the retrieval index from a corpus of .txt documents.

Documents are read from an S3 bucket (--bucket) or a local directory (--dir),
split into chunks, embedded, and written to a local index snapshot. With
--endpoint the chunks are instead indexed into a managed OpenSearch cluster
and no local snapshot is written.

Embedding calls are paced (default 5/s) to stay under backend throttling
limits. Chunks that fail to embed are skipped with a warning; the run
continues.

Examples:
  ragcore index --dir ./docs
  ragcore index --bucket my-corpus --prefix handbook/
  ragcore index --bucket my-corpus --endpoint https://abc.us-east-1.aoss.amazonaws.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Explicit flags win; environment fills in what was not given.
			if bucket == "" {
				bucket = os.Getenv("RAG_BUCKET")
			}
			if prefix == "" {
				prefix = os.Getenv("RAG_PREFIX")
			}
			if endpoint == "" {
				endpoint = os.Getenv("OPENSEARCH_ENDPOINT")
			}
			if !cmd.Flags().Changed("search-index") {
				searchIndex = getEnvOrDefault("OPENSEARCH_INDEX", searchIndex)
			}
			if !cmd.Flags().Changed("index-path") {
				indexPath = getEnvOrDefault("RAG_INDEX_PATH", indexPath)
			}
			if !cmd.Flags().Changed("metadata-path") {
				metadataPath = getEnvOrDefault("RAG_METADATA_PATH", metadataPath)
			}

			var corpus docstore.ObjectStore
			switch {
			case dir != "":
				corpus = docstore.NewDirStore(dir)
				log.Info("corpus: local directory", slog.String("dir", dir))
			case bucket != "":
				awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
				if err != nil {
					return fmt.Errorf("index: load AWS config: %w", err)
				}
				corpus = docstore.NewS3Store(s3.NewFromConfig(awsCfg), bucket, prefix)
				log.Info("corpus: S3 bucket", slog.String("bucket", bucket), slog.String("prefix", prefix))
			default:
				return fmt.Errorf("index: either --bucket or --dir is required")
			}

			emb, err := embedder.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("index: failed to initialise embedder: %w", err)
			}

			policy, err := chunker.ParsePolicy(policyName)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			var sink pipeline.IndexSink
			var local *pipeline.LocalSink
			if endpoint != "" {
				cluster, err := newClusterClient(ctx, endpoint, searchIndex)
				if err != nil {
					return fmt.Errorf("index: %w", err)
				}
				sink = pipeline.NewClusterSink(cluster)
				log.Info("sink: search cluster", slog.String("endpoint", endpoint), slog.String("index", searchIndex))
			} else {
				metric, err := vectorindex.ParseMetric(metricName)
				if err != nil {
					return fmt.Errorf("index: %w", err)
				}
				flat, err := vectorindex.NewFlat(embedDimensions(), metric)
				if err != nil {
					return fmt.Errorf("index: %w", err)
				}
				local = pipeline.NewLocalSink(flat, metastore.New())
				sink = local
				log.Info("sink: local snapshot", slog.String("index_path", indexPath), slog.String("metadata_path", metadataPath))
			}

			ingester, err := pipeline.NewIngester(corpus, emb, sink, pipeline.IngestConfig{
				Chunking: chunker.Config{
					Policy:   policy,
					MaxWords: chunkWords,
					Overlap:  chunkOverlap,
				},
				MaxFiles: maxFiles,
				Pace:     rate.Limit(pace),
			})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			stats, err := ingester.Run(ctx)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			if local != nil {
				snap := pipeline.Snapshot{IndexPath: indexPath, MetadataPath: metadataPath}
				if err := snap.Save(local.Index(), local.Meta()); err != nil {
					return fmt.Errorf("index: save snapshot: %w", err)
				}
				log.Info("snapshot written",
					slog.String("index_path", indexPath),
					slog.String("metadata_path", metadataPath),
				)
			}

			fmt.Printf("indexed %d chunks from %d files (%d too short, %d failed)\n",
				stats.Chunks, stats.Files, stats.SkippedShort, stats.SkippedFailed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "S3 bucket holding the corpus (or RAG_BUCKET)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix within the bucket (or RAG_PREFIX)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Local directory holding the corpus (overrides --bucket)")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "Cap on documents to ingest (0 = all)")
	cmd.Flags().StringVar(&indexPath, "index-path", "rag-index.bin", "Output path for the vector index snapshot")
	cmd.Flags().StringVar(&metadataPath, "metadata-path", "rag-metadata.json", "Output path for the chunk metadata snapshot")
	cmd.Flags().IntVar(&chunkWords, "chunk-words", 200, "Word budget per chunk")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 50, "Words shared between consecutive window chunks")
	cmd.Flags().StringVar(&policyName, "policy", "window", "Chunking policy (window, sentence)")
	cmd.Flags().StringVar(&metricName, "metric", "l2", "Distance metric for the local index (l2, cosine)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "OpenSearch endpoint; when set, index remotely instead of locally")
	cmd.Flags().StringVar(&searchIndex, "search-index", "rag-chunks", "OpenSearch index name")
	cmd.Flags().Float64Var(&pace, "pace", 5, "Embedding calls per second")

	return cmd
}
