package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/extropic-systems/ragcore/internal/generation"
	"github.com/extropic-systems/ragcore/internal/logging"
	"github.com/extropic-systems/ragcore/internal/pipeline"
	"github.com/extropic-systems/ragcore/internal/rag"
	"github.com/extropic-systems/ragcore/internal/server"
	"github.com/extropic-systems/ragcore/internal/store"
)

// NewServeCmd constructs the `ragcore serve` command, which starts the HTTP
// API server.
func NewServeCmd() *cobra.Command {
	var (
		host         string
		port         int
		indexPath    string
		metadataPath string
		endpoint     string
		searchIndex  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ragcore HTTP API server",
		Long: `Start the ragcore HTTP server on localhost.

The server exposes POST /api/answer for retrieval-augmented answering,
GET /api/history for past answers, and health, readiness, and Prometheus
metrics endpoints. Set RAGCORE_API_KEY to require Bearer authentication on
the answer and history routes.

Examples:
  ragcore serve
  ragcore serve --port 9090
  OPENSEARCH_ENDPOINT=https://abc.us-east-1.aoss.amazonaws.com ragcore serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Explicit flags win; environment fills in what was not given.
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

			bedrock, err := newBedrockClient(ctx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			generator, err := generation.NewBedrock(bedrock)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			// A missing index is not fatal: the server still answers
			// no-RAG requests, and RAG requests fail per-request.
			var retriever rag.Retriever
			retriever, err = buildRetriever(ctx, endpoint, searchIndex, indexPath, metadataPath, pipeline.DefaultTopK)
			if err != nil {
				log.Warn("serve: retrieval disabled", slog.Any("error", err))
				retriever = nil
			}

			answerer, err := pipeline.NewAnswerer(retriever, generator)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			history, closeHistory := openHistory(log)
			defer closeHistory()

			var pingers []server.Pinger
			if hs, ok := history.(*store.SQLiteStore); ok {
				pingers = append(pingers, server.NewHistoryPinger(hs))
			}
			if endpoint != "" {
				pingers = append(pingers, server.NewClusterPinger(endpoint, nil))
			}

			srv, err := server.New(answerer, history, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("RAGCORE_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")
	cmd.Flags().StringVar(&indexPath, "index-path", "rag-index.bin", "Path to the vector index snapshot")
	cmd.Flags().StringVar(&metadataPath, "metadata-path", "rag-metadata.json", "Path to the chunk metadata snapshot")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "OpenSearch endpoint; when set, retrieve remotely instead of locally")
	cmd.Flags().StringVar(&searchIndex, "search-index", "rag-chunks", "OpenSearch index name")

	return cmd
}
