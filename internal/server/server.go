// Package server implements the HTTP server that exposes the answer
// pipeline via a small JSON API, plus health, readiness, and Prometheus
// metrics endpoints. The server is started by the `ragcore serve` CLI
// command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/extropic-systems/ragcore/internal/generation"
	"github.com/extropic-systems/ragcore/internal/logging"
	"github.com/extropic-systems/ragcore/internal/pipeline"
	"github.com/extropic-systems/ragcore/internal/store"
)

// New constructs a Server from the provided answer service and config.
// history may be nil to disable answer recording.
func New(answerer AnswerService, history store.HistoryStore, cfg *Config) (*Server, error) {
	if answerer == nil {
		return nil, fmt.Errorf("server: answer service must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full retrieval plus generation round trip.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		answerer: answerer,
		history:  history,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(registry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/answer", s.protected(rl, "answer", http.HandlerFunc(s.handleAnswer)))
	mux.Handle("GET /api/answer", s.protected(rl, "answer", http.HandlerFunc(s.handleAnswer)))
	mux.Handle("GET /api/history", s.protected(rl, "history", http.HandlerFunc(s.handleHistory)))
	mux.Handle("GET /api/health", s.instrumented("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrumented("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// protected wraps a handler with the full middleware chain: request logging
// and metrics, authentication, and per-IP rate limiting.
func (s *Server) protected(rl *rateLimiter, name string, h http.Handler) http.Handler {
	return s.instrumented(name, authMiddleware(s.cfg.APIKey, rl.middleware(h)))
}

// instrumented wraps a handler with request logging and HTTP metrics only.
func (s *Server) instrumented(name string, h http.Handler) http.Handler {
	return requestLogger(s.log, s.metrics, name, h)
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleAnswer handles POST and GET /api/answer. POST carries a JSON body;
// GET carries the same fields as query parameters so the endpoint can be
// exercised from a browser or curl without a body.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	req, err := decodeAnswerRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	ragEnabled := true
	if req.EnableRAG != nil {
		ragEnabled = *req.EnableRAG
	}

	ans, err := s.answerer.Ask(r.Context(), pipeline.Question{
		Text:    req.Question,
		TopK:    req.TopK,
		ModelID: req.ModelID,
		RAG:     ragEnabled,
	})
	outcome := "ok"
	if err != nil {
		var unsupported *generation.UnsupportedModelError
		if errors.As(err, &unsupported) {
			outcome = "bad_model"
			http.Error(w, unsupported.Error(), http.StatusBadRequest)
		} else {
			outcome = "error"
			log.Error("answer failed", slog.Any("error", err))
			http.Error(w, "answer failed", http.StatusBadGateway)
		}
		s.metrics.answerRequestsTotal.WithLabelValues(outcome).Inc()
		s.metrics.answerDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		return
	}

	s.metrics.answerRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.answerDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if s.history != nil {
		entry := store.Entry{Question: req.Question, Answer: ans.Text, ModelID: ans.ModelID, RAG: ragEnabled}
		if err := s.history.Append(r.Context(), entry); err != nil {
			log.Warn("history append failed", slog.Any("error", err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(answerResponse{
		Answer:    ans.Text,
		ModelID:   ans.ModelID,
		Context:   toContextItems(ans.Context),
		ElapsedMS: ans.Elapsed.Milliseconds(),
	})
}

// decodeAnswerRequest parses the request from either the JSON body (POST)
// or the query string (GET).
func decodeAnswerRequest(r *http.Request) (answerRequest, error) {
	var req answerRequest

	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid request body")
		}
		return req, nil
	}

	q := r.URL.Query()
	req.Question = q.Get("question")
	req.ModelID = q.Get("model_id")
	if v := q.Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return req, fmt.Errorf("top_k must be a positive integer")
		}
		req.TopK = n
	}
	if v := q.Get("enable_rag"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("enable_rag must be a boolean")
		}
		req.EnableRAG = &b
	}
	return req, nil
}

// handleHistory handles GET /api/history, returning the most recent
// answered questions oldest-first. The optional "n" parameter caps the
// count (default 20).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}

	n := 20
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	entries, err := s.history.Recent(r.Context(), n)
	if err != nil {
		logging.FromContext(r.Context()).Error("history read failed", slog.Any("error", err))
		http.Error(w, "history read failed", http.StatusInternalServerError)
		return
	}

	type historyItem struct {
		Question  string    `json:"question"`
		Answer    string    `json:"answer"`
		ModelID   string    `json:"model_id"`
		RAG       bool      `json:"rag"`
		CreatedAt time.Time `json:"created_at"`
	}
	items := make([]historyItem, len(entries))
	for i, e := range entries {
		items[i] = historyItem{Question: e.Question, Answer: e.Answer, ModelID: e.ModelID, RAG: e.RAG, CreatedAt: e.CreatedAt}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"entries": items})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
