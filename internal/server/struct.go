package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/extropic-systems/ragcore/internal/pipeline"
	"github.com/extropic-systems/ragcore/internal/rag"
	"github.com/extropic-systems/ragcore/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil a private
	// registry is created and served at /metrics.
	Registry *prometheus.Registry
}

// AnswerService is the interface handleAnswer calls to answer a question.
// *pipeline.Answerer satisfies it; tests inject a fake.
type AnswerService interface {
	Ask(ctx context.Context, q pipeline.Question) (pipeline.Answer, error)
}

// Server is the HTTP server that exposes the answer pipeline.
type Server struct {
	// answerer handles all answer requests.
	answerer AnswerService
	// history records answered questions; nil disables recording.
	history store.HistoryStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// answerRequest is the JSON body for POST /api/answer. GET requests carry
// the same fields as query parameters (question, top_k, model_id, enable_rag).
type answerRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
	// TopK is how many chunks to retrieve (default: 5).
	TopK int `json:"top_k,omitempty"`
	// ModelID selects the generation model.
	ModelID string `json:"model_id,omitempty"`
	// EnableRAG controls retrieval; defaults to true when absent.
	EnableRAG *bool `json:"enable_rag,omitempty"`
}

// contextItem is one retrieved chunk in an answer response.
type contextItem struct {
	// Chunk is the passage text.
	Chunk string `json:"chunk"`
	// Source is the key of the originating document.
	Source string `json:"source"`
	// Score is the backend's ranking score.
	Score float32 `json:"score"`
}

// answerResponse is the JSON body returned by /api/answer.
type answerResponse struct {
	// Answer is the model's completion.
	Answer string `json:"answer"`
	// ModelID is the model that produced the completion.
	ModelID string `json:"model_id"`
	// Context is the retrieved chunks, in ranked order. Omitted when
	// retrieval was disabled.
	Context []contextItem `json:"context,omitempty"`
	// ElapsedMS is the wall-clock request duration in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`
}

// toContextItems converts retrieval hits into response items.
func toContextItems(scored []rag.ScoredRecord) []contextItem {
	if len(scored) == 0 {
		return nil
	}
	items := make([]contextItem, len(scored))
	for i, s := range scored {
		items[i] = contextItem{Chunk: s.Record.Chunk, Source: s.Record.Source, Score: s.Score}
	}
	return items
}
