package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// openaiEmbeddingStub serves a minimal embeddings endpoint. Responses are
// returned out of index order to exercise place-by-index reassembly.
func openaiEmbeddingStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		type datum struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]datum, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, datum{Index: i, Embedding: []float64{float64(i), float64(i) + 0.5}})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
}

func Test_OpenAIEmbedder_PlacesEmbeddingsByIndex(t *testing.T) {
	t.Parallel()

	srv := openaiEmbeddingStub(t)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(&OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new embedder: %v", err)
	}

	got, err := e.Embed(context.Background(), []string{"first", "second", "third"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 embeddings, got %d", len(got))
	}
	for i, vec := range got {
		if vec[0] != float32(i) {
			t.Errorf("embedding %d misplaced: %v", i, vec)
		}
	}
}

func Test_OpenAIEmbedder_EmptyInputFailsBeforeTransport(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(&OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new embedder: %v", err)
	}

	_, err = e.Embed(context.Background(), []string{"ok", ""})
	var embErr *EmbeddingError
	if !errors.As(err, &embErr) {
		t.Fatalf("want EmbeddingError, got %v", err)
	}
	if called {
		t.Error("transport was called for empty input")
	}
}

func Test_OpenAIEmbedder_ServerErrorIsEmbeddingError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(&OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new embedder: %v", err)
	}

	_, err = e.Embed(context.Background(), []string{"text"})
	var embErr *EmbeddingError
	if !errors.As(err, &embErr) {
		t.Fatalf("want EmbeddingError, got %v", err)
	}
	if embErr.Backend != "openai" {
		t.Errorf("backend = %q, want openai", embErr.Backend)
	}
}

func Test_NewOpenAIEmbedder_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewOpenAIEmbedder(&OpenAIConfig{}); err == nil {
		t.Fatal("want error for missing API key")
	}
}
