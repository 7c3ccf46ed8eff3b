package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/extropic-systems/ragcore/internal/metastore"
	"github.com/extropic-systems/ragcore/internal/vectorindex"
)

// Snapshot is the on-disk form of a local index: the vector blob next to
// the metadata JSON. The two files travel together; loading validates the
// slot pairing so a mismatched pair is caught before any query runs.
type Snapshot struct {
	// IndexPath is the vector index blob file.
	IndexPath string
	// MetadataPath is the metadata JSON file.
	MetadataPath string
}

// Save writes the index and metadata to their paths, creating parent
// directories as needed. Both files are written via a temp-and-rename so a
// crash mid-write cannot leave a truncated snapshot behind.
func (s Snapshot) Save(index *vectorindex.Flat, meta *metastore.Store) error {
	if index.Len() != meta.Len() {
		return fmt.Errorf("pipeline: refusing to save mismatched snapshot: index has %d vectors, metadata has %d records", index.Len(), meta.Len())
	}

	if err := writeAtomic(s.IndexPath, func(w io.Writer) error {
		_, err := index.WriteTo(w)
		return err
	}); err != nil {
		return fmt.Errorf("pipeline: save index: %w", err)
	}

	if err := writeAtomic(s.MetadataPath, meta.Save); err != nil {
		return fmt.Errorf("pipeline: save metadata: %w", err)
	}
	return nil
}

// Load reads the index and metadata back and validates their pairing.
func (s Snapshot) Load() (*vectorindex.Flat, *metastore.Store, error) {
	indexFile, err := os.Open(s.IndexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: open index: %w", err)
	}
	defer indexFile.Close()

	index, err := vectorindex.ReadFlat(indexFile)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: load index: %w", err)
	}

	metaFile, err := os.Open(s.MetadataPath)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: open metadata: %w", err)
	}
	defer metaFile.Close()

	meta, err := metastore.Load(metaFile)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: load metadata: %w", err)
	}

	if index.Len() != meta.Len() {
		return nil, nil, fmt.Errorf("pipeline: snapshot pairing broken: index has %d vectors, metadata has %d records", index.Len(), meta.Len())
	}
	return index, meta, nil
}

// writeAtomic writes a file through a same-directory temp file and rename.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
