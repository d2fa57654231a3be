// Package memory keeps destination tables in process memory for development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/storage"
)

// TableStore implements collector.TableStore in memory.
type TableStore struct {
	mu     sync.RWMutex
	tables map[string][]collector.Row
}

// NewTableStore creates an empty store.
func NewTableStore() *TableStore {
	return &TableStore{tables: make(map[string][]collector.Row)}
}

// Clear implements collector.TableStore.
func (s *TableStore) Clear(_ context.Context, table collector.Table) error {
	if err := storage.ValidateTable(table); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, table.Name)
	return nil
}

// Append implements collector.TableStore.
func (s *TableStore) Append(_ context.Context, table collector.Table, rows []collector.Row) error {
	if err := storage.ValidateTable(table); err != nil {
		return err
	}
	if err := storage.ValidateRows(table, rows); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table.Name] = append(s.tables[table.Name], append(collector.Row(nil), r...))
	}
	return nil
}

// Rows returns a copy of the rows held for name.
func (s *TableStore) Rows(name string) []collector.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.tables[name]
	out := make([]collector.Row, len(src))
	for i, r := range src {
		out[i] = append(collector.Row(nil), r...)
	}
	return out
}

// Close implements collector.TableStore.
func (s *TableStore) Close() error { return nil }
