package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/extropic-systems/ragcore/internal/embedder"
	"github.com/extropic-systems/ragcore/internal/searchcluster"
	"github.com/extropic-systems/ragcore/internal/store"
)

// getEnvOrDefault returns the environment value for key, or fallback when
// unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// embedDimensions resolves the vector dimensionality for the configured
// embedding backend. EMBEDDING_DIMENSIONS overrides the backend default.
func embedDimensions() int {
	return embedder.DefaultDimensions(getEnvOrDefault("EMBEDDING_PROVIDER", "bedrock"))
}

// newBedrockClient builds a Bedrock runtime client from the ambient AWS
// credential chain. AWS_REGION overrides the resolved region.
func newBedrockClient(ctx context.Context) (*bedrockruntime.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.Region = region
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// newClusterClient builds a search-cluster client whose HTTP transport signs
// every request with SigV4, as OpenSearch Serverless requires.
func newClusterClient(ctx context.Context, endpoint, index string) (*searchcluster.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.Region = region
	}
	httpClient := &http.Client{
		Transport: searchcluster.NewSigV4Transport(cfg.Credentials, cfg.Region),
	}
	return searchcluster.New(endpoint, index, httpClient), nil
}

// openHistory opens the answer-history store. RAGCORE_HISTORY_DB overrides
// the default path (~/.ragcore/history.db); set it to "disabled" to skip
// history entirely. Open failures disable history with a warning rather than
// aborting the command.
func openHistory(log *slog.Logger) (store.HistoryStore, func()) {
	dbPath := os.Getenv("RAGCORE_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via RAGCORE_HISTORY_DB=disabled")
		return nil, func() {}
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
	}
	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil, func() {}
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}
