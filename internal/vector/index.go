// Package vector provides the in-memory vector index shared by the
// ingestion and query pipelines.
package vector

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/viant/vec/search"

	"github.com/hyperjump/kioku/internal/models"
)

// ErrDimensionMismatch is returned when a vector's length disagrees with the
// dimension established by the first insert.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// parallelThreshold is the record count above which Search fans the scan out
// across CPUs.
const parallelThreshold = 4096

// record is one stored vector with its chunk. Records are created on insert,
// never mutated, and carry sequential ids in insertion order.
type record struct {
	id        int64
	vector    []float32
	magnitude float32
	chunk     models.Chunk
}

// Entry pairs a vector with its chunk for AddBatch.
type Entry struct {
	Vector []float32
	Chunk  models.Chunk
}

// Index is an in-memory brute-force vector index. Search is exact cosine
// similarity over every stored record: at the thousands-of-records scale
// this serves, a linear SIMD scan stays fast and, unlike approximate
// structures, returns exact results. The dimension is established by the
// first inserted vector and fixed for the index lifetime.
//
// One writer at a time, any number of concurrent readers. Contents live only
// in memory and are lost on restart.
type Index struct {
	mu      sync.RWMutex
	dim     int
	records []record
	nextID  int64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Add stores one vector with its chunk, assigning the next sequential id.
// Duplicate content is stored again, never deduplicated.
func (x *Index) Add(vec []float32, chunk models.Chunk) error {
	return x.AddBatch([]Entry{{Vector: vec, Chunk: chunk}})
}

// AddBatch stores all entries or none. Every vector is validated against the
// index dimension (the first vector of the first batch establishes it)
// before anything is appended.
func (x *Index) AddBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	dim := x.dim
	if dim == 0 {
		dim = len(entries[0].Vector)
	}
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	for i, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %d has %d dimensions, index has %d",
				ErrDimensionMismatch, i, len(e.Vector), dim)
		}
	}
	x.dim = dim
	for _, e := range entries {
		vec := make([]float32, dim)
		copy(vec, e.Vector)
		x.records = append(x.records, record{
			id:        x.nextID,
			vector:    vec,
			magnitude: search.Float32s(vec).Magnitude(),
			chunk:     e.Chunk,
		})
		x.nextID++
	}
	return nil
}

// Search returns up to k records ranked by cosine similarity to query,
// highest first, ties broken by ascending insertion id. An empty index
// yields an empty result, never an error, as does k <= 0. Zero-magnitude
// vectors score 0.
func (x *Index) Search(query []float32, k int) ([]models.SearchResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(x.records) == 0 || k <= 0 {
		return []models.SearchResult{}, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(query), x.dim)
	}
	scores := make([]float64, len(x.records))
	if qmag := search.Float32s(query).Magnitude(); qmag != 0 {
		x.score(query, qmag, scores)
	}
	order := make([]int, len(x.records))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if scores[ia] != scores[ib] {
			return scores[ia] > scores[ib]
		}
		return x.records[ia].id < x.records[ib].id
	})
	if k > len(order) {
		k = len(order)
	}
	results := make([]models.SearchResult, k)
	for i := 0; i < k; i++ {
		results[i] = models.SearchResult{
			Chunk: x.records[order[i]].chunk,
			Score: scores[order[i]],
		}
	}
	return results, nil
}

// score fills scores[i] with the cosine similarity of query to record i,
// fanning the scan out across CPUs for large record sets. Workers write
// disjoint ranges of scores, so the result is identical to a serial scan.
func (x *Index) score(query []float32, qmag float32, scores []float64) {
	n := len(x.records)
	workers := runtime.NumCPU()
	if n < parallelThreshold || workers < 2 {
		x.scoreRange(query, qmag, scores, 0, n)
		return
	}
	if workers > n {
		workers = n
	}
	step := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += step {
		end := start + step
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			x.scoreRange(query, qmag, scores, lo, hi)
		}(start, end)
	}
	wg.Wait()
}

func (x *Index) scoreRange(query []float32, qmag float32, scores []float64, lo, hi int) {
	q := search.Float32s(query)
	for i := lo; i < hi; i++ {
		rec := &x.records[i]
		if rec.magnitude == 0 {
			continue
		}
		dist := q.CosineDistanceWithMagnitude(rec.vector, qmag, rec.magnitude)
		scores[i] = float64(1 - dist)
	}
}

// Size returns the number of stored records.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}

// Dimensions returns the established vector dimension, 0 before any insert.
func (x *Index) Dimensions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

// Clear drops every record. The established dimension is kept: it is fixed
// for the index lifetime, so vectors inserted afterwards must still match.
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.records = nil
}
