package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HistoryPinger probes the answer history database. It satisfies the Pinger
// interface and is used by GET /api/ready.
type HistoryPinger struct {
	// db is the history database connection to probe.
	db interface {
		Ping(ctx context.Context) error
	}
}

// NewHistoryPinger constructs a HistoryPinger for the given database.
// *store.SQLiteStore satisfies the db argument.
func NewHistoryPinger(db interface{ Ping(ctx context.Context) error }) *HistoryPinger {
	return &HistoryPinger{db: db}
}

// Name returns the dependency label used in readiness responses.
func (p *HistoryPinger) Name() string { return "history" }

// Ping checks the database connection.
func (p *HistoryPinger) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("history db unreachable: %w", err)
	}
	return nil
}

// ClusterPinger probes a managed search cluster endpoint with a plain GET.
// Any HTTP response, even an auth rejection, proves the endpoint is
// reachable; only transport failures count as down.
type ClusterPinger struct {
	// endpoint is the cluster base URL.
	endpoint string
	// httpClient performs the probe request.
	httpClient *http.Client
}

// NewClusterPinger constructs a ClusterPinger for the given endpoint. If
// httpClient is nil a default client with a 5s timeout is used.
func NewClusterPinger(endpoint string, httpClient *http.Client) *ClusterPinger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &ClusterPinger{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
	}
}

// Name returns the dependency label used in readiness responses.
func (p *ClusterPinger) Name() string { return "cluster" }

// Ping sends a GET to the cluster base URL.
func (p *ClusterPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cluster unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}
