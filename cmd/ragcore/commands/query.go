package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/extropic-systems/ragcore/internal/embedder"
	"github.com/extropic-systems/ragcore/internal/generation"
	"github.com/extropic-systems/ragcore/internal/logging"
	"github.com/extropic-systems/ragcore/internal/pipeline"
	"github.com/extropic-systems/ragcore/internal/rag"
	"github.com/extropic-systems/ragcore/internal/store"
)

// NewQueryCmd constructs the `ragcore query` command, which answers a single
// question or, with no argument, starts an interactive prompt loop.
func NewQueryCmd() *cobra.Command {
	var (
		modelID      string
		topK         int
		noRAG        bool
		showContext  bool
		indexPath    string
		metadataPath string
		endpoint     string
		searchIndex  string
		maxTokens    int
	)

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Answer a question over the indexed corpus",
		Long: `Answer a natural language question using retrieval-augmented generation.

The question is embedded, the closest chunks are retrieved from the index
built by 'ragcore index', and a Bedrock text model answers with those chunks
as context. With no question argument an interactive prompt loop starts.

Examples:
  ragcore query "what is the refund policy?"
  ragcore query --model-id mistral.mistral-7b-instruct-v0:2 "summarise the handbook"
  ragcore query --no-rag "what is a vector index?"
  ragcore query`,
		Args: cobra.MaximumNArgs(1),
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
			if !cmd.Flags().Changed("model-id") {
				modelID = getEnvOrDefault("BEDROCK_MODEL_ID", modelID)
			}

			bedrock, err := newBedrockClient(ctx)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			generator, err := generation.NewBedrock(bedrock)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			var retriever rag.Retriever
			if !noRAG {
				retriever, err = buildRetriever(ctx, endpoint, searchIndex, indexPath, metadataPath, topK)
				if err != nil {
					return fmt.Errorf("query: %w", err)
				}
			}

			answerer, err := pipeline.NewAnswerer(retriever, generator)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			history, closeHistory := openHistory(log)
			defer closeHistory()

			ask := func(question string) error {
				answer, err := answerer.Ask(ctx, pipeline.Question{
					Text:    question,
					TopK:    topK,
					ModelID: modelID,
					RAG:     !noRAG,
					Options: generation.Options{MaxTokens: maxTokens},
				})
				if err != nil {
					return err
				}

				fmt.Println(answer.Text)
				if showContext {
					printContext(answer)
				}

				if history != nil {
					if err := history.Append(ctx, store.Entry{
						Question: question,
						Answer:   answer.Text,
						ModelID:  answer.ModelID,
						RAG:      !noRAG,
					}); err != nil {
						log.Warn("history: append failed", slog.Any("error", err))
					}
				}
				return nil
			}

			if len(args) == 1 {
				return ask(args[0])
			}
			return interactiveLoop(ctx, ask)
		},
	}

	cmd.Flags().StringVarP(&modelID, "model-id", "m", pipeline.DefaultModelID, "Bedrock model ID for generation")
	cmd.Flags().IntVarP(&topK, "top-k", "k", pipeline.DefaultTopK, "Number of chunks to retrieve")
	cmd.Flags().BoolVar(&noRAG, "no-rag", false, "Skip retrieval and send the question verbatim")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "Print the retrieved chunks after the answer")
	cmd.Flags().StringVar(&indexPath, "index-path", "rag-index.bin", "Path to the vector index snapshot")
	cmd.Flags().StringVar(&metadataPath, "metadata-path", "rag-metadata.json", "Path to the chunk metadata snapshot")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "OpenSearch endpoint; when set, retrieve remotely instead of locally")
	cmd.Flags().StringVar(&searchIndex, "search-index", "rag-chunks", "OpenSearch index name")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Generation token budget (0 = model default)")

	return cmd
}

// buildRetriever wires the retrieval side: a remote cluster retriever when an
// endpoint is configured, otherwise a local retriever over the index snapshot.
func buildRetriever(ctx context.Context, endpoint, searchIndex, indexPath, metadataPath string, topK int) (rag.Retriever, error) {
	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	if endpoint != "" {
		cluster, err := newClusterClient(ctx, endpoint, searchIndex)
		if err != nil {
			return nil, err
		}
		return rag.NewClusterRetriever(emb, cluster, topK)
	}

	index, meta, err := pipeline.Snapshot{IndexPath: indexPath, MetadataPath: metadataPath}.Load()
	if err != nil {
		return nil, fmt.Errorf("load index snapshot (run 'ragcore index' first?): %w", err)
	}
	return rag.NewLocalRetriever(emb, index, meta, topK)
}

// printContext lists the retrieved chunks with their sources and distances.
func printContext(answer pipeline.Answer) {
	fmt.Printf("\n--- context (%d chunks, %s) ---\n", len(answer.Context), answer.Elapsed.Round(time.Millisecond))
	for i, rec := range answer.Context {
		fmt.Printf("[%d] %s (distance %.4f)\n%s\n", i+1, rec.Record.Source, rec.Score, rec.Record.Chunk)
	}
}

// interactiveLoop reads questions from stdin until EOF or interrupt. Failed
// questions print the error and the loop continues.
func interactiveLoop(ctx context.Context, ask func(string) error) error {
	fmt.Println("ragcore interactive mode. Enter a question, or Ctrl-D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if err := ask(question); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
