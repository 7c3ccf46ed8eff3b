// Package metastore keeps the per-slot metadata that parallels the vector
// index: for every indexed vector, the chunk text it was computed from and
// the source key of the originating document. Records are append-only and
// slot-addressed; the store serializes to a plain JSON array so the file is
// readable and diffable.
package metastore

import (
	"encoding/json"
	"fmt"
	"io"
)

// Record is the metadata stored for one indexed chunk.
type Record struct {
	// Chunk is the passage text that was embedded.
	Chunk string `json:"chunk"`

	// Source is the key of the document the chunk came from.
	Source string `json:"source"`
}

// OutOfRangeError reports a lookup of a slot that has never been appended.
// Because every index insertion is paired with a metadata append, seeing this
// error for a slot returned by the index means the pairing invariant was
// broken, and callers should treat it as fatal.
type OutOfRangeError struct {
	// Slot is the requested slot.
	Slot int
	// Size is the store size at lookup time.
	Size int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("metastore: slot %d out of range [0, %d)", e.Slot, e.Size)
}

// Store is an append-only, slot-ordered collection of records.
// It is not safe for concurrent use; callers that share a store across
// goroutines must serialize access together with the paired vector index.
type Store struct {
	records []Record
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Append adds a record and returns its slot (the store size before the
// append). Callers pairing the store with a vector index must call Append
// immediately after a successful index insertion so slots stay aligned.
func (s *Store) Append(rec Record) int {
	s.records = append(s.records, rec)
	return len(s.records) - 1
}

// Get returns the record at slot, or *OutOfRangeError if slot has never
// been appended.
func (s *Store) Get(slot int) (Record, error) {
	if slot < 0 || slot >= len(s.records) {
		return Record{}, &OutOfRangeError{Slot: slot, Size: len(s.records)}
	}
	return s.records[slot], nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// Save writes the records as an indented JSON array. Round-tripping through
// Load preserves record content and slot order exactly.
func (s *Store) Save(w io.Writer) error {
	records := s.records
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("metastore: encode: %w", err)
	}
	return nil
}

// Load reads a JSON array previously written with Save and returns a store
// containing those records.
func Load(r io.Reader) (*Store, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("metastore: decode: %w", err)
	}
	return &Store{records: records}, nil
}
