// Package searchcluster is the HTTP client for a managed k-NN search
// cluster (an OpenSearch-Serverless-style endpoint). It indexes embedded
// chunks as documents and runs knn queries against a `_search` endpoint.
// Request signing is a collaborator concern: pass an http.Client whose
// transport signs requests (see SigV4Transport) when the cluster requires
// authentication.
package searchcluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TransportError reports a non-2xx response or malformed body from the
// cluster. Query-time occurrences propagate to the caller as a failed
// retrieval; ingest-time occurrences are logged and the chunk is skipped.
type TransportError struct {
	// Op is the operation that failed ("index" or "search").
	Op string
	// StatusCode is the HTTP status, or 0 when the request never completed.
	StatusCode int
	// Err is the underlying cause, if any.
	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("searchcluster: %s failed: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("searchcluster: %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Hit is one ranked search result from the cluster.
type Hit struct {
	// Chunk is the passage text stored with the document.
	Chunk string
	// Source is the origin key stored with the document.
	Source string
	// Score is the engine's relevance score, as returned.
	Score float32
}

// Client talks to one index on one cluster endpoint.
type Client struct {
	// endpoint is the cluster base URL, without a trailing slash.
	endpoint string
	// index is the target index name.
	index string
	// httpClient performs the requests; its transport handles signing.
	httpClient *http.Client
}

// New constructs a Client for the given endpoint and index name. If
// httpClient is nil a default client with a 30s timeout is used.
func New(endpoint, index string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		index:      index,
		httpClient: httpClient,
	}
}

// indexDocument is the JSON body posted for each embedded chunk.
type indexDocument struct {
	Chunk     string    `json:"chunk"`
	Embedding []float32 `json:"embedding"`
	Source    string    `json:"source"`
}

// IndexChunk stores one embedded chunk as a document in the cluster index.
func (c *Client) IndexChunk(ctx context.Context, chunk string, embedding []float32, source string) error {
	body, err := json.Marshal(indexDocument{Chunk: chunk, Embedding: embedding, Source: source})
	if err != nil {
		return &TransportError{Op: "index", Err: err}
	}

	url := fmt.Sprintf("%s/%s/_doc", c.endpoint, c.index)
	resp, err := c.post(ctx, url, body)
	if err != nil {
		return &TransportError{Op: "index", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return &TransportError{Op: "index", StatusCode: resp.StatusCode}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// knnQuery is the JSON body for a k-NN vector search.
type knnQuery struct {
	Size  int `json:"size"`
	Query struct {
		KNN struct {
			Embedding struct {
				Vector []float32 `json:"vector"`
				K      int       `json:"k"`
			} `json:"embedding"`
		} `json:"knn"`
	} `json:"query"`
}

// searchResponse is the subset of the cluster's search response we consume.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float32 `json:"_score"`
			Source struct {
				Chunk  string `json:"chunk"`
				Source string `json:"source"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a k-NN query and returns the ranked hits as the engine
// ordered them.
func (c *Client) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	var q knnQuery
	q.Size = k
	q.Query.KNN.Embedding.Vector = vector
	q.Query.KNN.Embedding.K = k

	body, err := json.Marshal(q)
	if err != nil {
		return nil, &TransportError{Op: "search", Err: err}
	}

	url := fmt.Sprintf("%s/%s/_search", c.endpoint, c.index)
	resp, err := c.post(ctx, url, body)
	if err != nil {
		return nil, &TransportError{Op: "search", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{Op: "search", StatusCode: resp.StatusCode}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &TransportError{Op: "search", Err: err}
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			Chunk:  h.Source.Chunk,
			Source: h.Source.Source,
			Score:  h.Score,
		})
	}
	return hits, nil
}

// post sends a JSON POST request to the given URL.
func (c *Client) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}
