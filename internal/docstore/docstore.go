// Package docstore abstracts where source documents live. Ingest walks an
// ObjectStore, fetching plain-text documents by key; implementations cover
// S3 buckets, local directories, and an in-memory store for tests.
package docstore

import (
	"context"
	"fmt"
)

// ObjectStore lists and fetches source documents.
type ObjectStore interface {
	// List returns the keys of all text documents, sorted ascending. Keys
	// are store-relative and usable with Fetch as-is.
	List(ctx context.Context) ([]string, error)
	// Fetch returns the full contents of the document at key.
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// NotFoundError reports a Fetch for a key the store does not hold.
type NotFoundError struct {
	// Key is the missing document key.
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("docstore: %q not found", e.Key)
}
