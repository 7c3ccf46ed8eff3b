// Package vectorindex provides an exact flat vector index: append-only
// insertion, linear-scan k-nearest-neighbor search, and a self-describing
// binary persistence format. At the corpus sizes this project targets
// (thousands of vectors) an exact scan is both fast enough and gives
// reproducible ranking, which approximate structures cannot guarantee.
package vectorindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// DimensionError reports an attempt to insert or query with a vector whose
// length does not match the index dimension. The index is left unchanged.
type DimensionError struct {
	// Want is the configured index dimension.
	Want int
	// Got is the length of the offending vector.
	Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vectorindex: dimension mismatch: index expects %d, vector has %d", e.Want, e.Got)
}

// Result is one search hit: the slot of a stored vector and its distance to
// the query under the index metric.
type Result struct {
	// Slot is the zero-based insertion order of the matched vector.
	Slot int
	// Distance is the metric distance to the query (smaller = more similar).
	Distance float32
}

// Flat is an exact, append-only vector index. Slots are dense zero-based
// insertion positions and are stable once assigned; there is no deletion.
// Flat is not safe for concurrent use; callers that share an index across
// goroutines must serialize access.
type Flat struct {
	dim     int
	metric  Metric
	vectors [][]float32
}

// NewFlat constructs an empty index for vectors of the given dimension.
func NewFlat(dim int, metric Metric) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vectorindex: dimension must be positive, got %d", dim)
	}
	return &Flat{dim: dim, metric: metric}, nil
}

// Dim returns the configured vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Metric returns the distance metric this index ranks by.
func (f *Flat) Metric() Metric { return f.metric }

// Len returns the number of stored vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Add appends a vector and returns its slot (the index size before the
// append). A vector of the wrong length fails with *DimensionError and
// leaves the index size unchanged. The vector is copied; the caller may
// reuse the slice.
func (f *Flat) Add(vec []float32) (int, error) {
	if len(vec) != f.dim {
		return 0, &DimensionError{Want: f.dim, Got: len(vec)}
	}
	stored := make([]float32, f.dim)
	copy(stored, vec)
	f.vectors = append(f.vectors, stored)
	return len(f.vectors) - 1, nil
}

// Search returns up to k results ordered by ascending distance to query,
// with ties broken by ascending slot. An empty index yields an empty result,
// not an error. A query of the wrong length fails with *DimensionError.
func (f *Flat) Search(query []float32, k int) ([]Result, error) {
	if len(query) != f.dim {
		return nil, &DimensionError{Want: f.dim, Got: len(query)}
	}
	if k <= 0 || len(f.vectors) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, len(f.vectors))
	for slot, vec := range f.vectors {
		results[slot] = Result{Slot: slot, Distance: f.metric.distance(query, vec)}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Slot < results[j].Slot
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Persistence format: a fixed header followed by raw little-endian float32
// values in slot order. The header records the metric and dimension so a
// blob can be validated before any vector data is read.
const (
	blobMagic   = "RGVI"
	blobVersion = 1
)

// WriteTo serializes the index. Round-tripping through ReadFlat preserves
// exact vector bit patterns and slot order.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	n := int64(0)

	if _, err := bw.WriteString(blobMagic); err != nil {
		return n, fmt.Errorf("vectorindex: write header: %w", err)
	}
	n += int64(len(blobMagic))

	header := []uint32{blobVersion, uint32(f.metric), uint32(f.dim), uint32(len(f.vectors))}
	for _, v := range header {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return n, fmt.Errorf("vectorindex: write header: %w", err)
		}
		n += 4
	}

	buf := make([]byte, 4)
	for _, vec := range f.vectors {
		for _, x := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
			if _, err := bw.Write(buf); err != nil {
				return n, fmt.Errorf("vectorindex: write vectors: %w", err)
			}
			n += 4
		}
	}

	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("vectorindex: flush: %w", err)
	}
	return n, nil
}

// ReadFlat deserializes an index previously written with WriteTo.
func ReadFlat(r io.Reader) (*Flat, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(blobMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("vectorindex: read header: %w", err)
	}
	if string(magic) != blobMagic {
		return nil, fmt.Errorf("vectorindex: bad magic %q, not an index blob", magic)
	}

	var version, metric, dim, count uint32
	for _, dst := range []*uint32{&version, &metric, &dim, &count} {
		if err := binary.Read(br, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("vectorindex: read header: %w", err)
		}
	}
	if version != blobVersion {
		return nil, fmt.Errorf("vectorindex: unsupported blob version %d", version)
	}
	switch Metric(metric) {
	case MetricSquaredL2, MetricCosine:
	default:
		return nil, fmt.Errorf("vectorindex: unknown metric %d in blob header", metric)
	}
	if dim == 0 {
		return nil, fmt.Errorf("vectorindex: blob declares zero dimension")
	}

	f := &Flat{dim: int(dim), metric: Metric(metric)}
	f.vectors = make([][]float32, 0, count)

	buf := make([]byte, 4)
	for i := uint32(0); i < count; i++ {
		vec := make([]float32, dim)
		for j := range vec {
			if _, err := io.ReadFull(br, buf); err != nil {
				return nil, fmt.Errorf("vectorindex: read vector %d: %w", i, err)
			}
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf))
		}
		f.vectors = append(f.vectors, vec)
	}

	return f, nil
}
