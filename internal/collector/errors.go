package collector

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRows signals that a source answered but produced nothing usable.
	ErrNoRows = errors.New("source returned no rows")
	// ErrNoKeywords is returned when the catalog has nothing to scrape.
	ErrNoKeywords = errors.New("keyword catalog is empty")
)

// CollectionError describes one abandoned batch.
type CollectionError struct {
	Source   SourceID
	Category string
	Batch    []string
	Err      error
}

// NewCollectionError builds a CollectionError, copying the batch.
func NewCollectionError(source SourceID, category string, batch []string, err error) *CollectionError {
	return &CollectionError{
		Source:   source,
		Category: category,
		Batch:    append([]string(nil), batch...),
		Err:      err,
	}
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("%s: category %q batch [%s]: %v", e.Source, e.Category, strings.Join(e.Batch, ", "), e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// Result is what every adapter returns for one category: the rows it managed
// to normalize plus every batch it had to abandon.
type Result struct {
	Source   SourceID
	Category string
	Table    string
	Rows     []Row
	Batches  int
	Failures []*CollectionError
}

// Failed is true when nothing was produced and at least one batch failed.
func (r Result) Failed() bool {
	return len(r.Rows) == 0 && len(r.Failures) > 0
}

// Batch splits keywords into groups of at most size. Callers own their batch
// size; there is no package default.
func Batch(keywords []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	out := make([][]string, 0, (len(keywords)+size-1)/size)
	for start := 0; start < len(keywords); start += size {
		end := start + size
		if end > len(keywords) {
			end = len(keywords)
		}
		out = append(out, append([]string(nil), keywords[start:end]...))
	}
	return out
}
