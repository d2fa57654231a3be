// Package local stores destination tables as CSV files in a directory.
package local

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/storage"
)

// Config captures the parameters for the CSV table store.
type Config struct {
	// BaseDir is the directory holding one <table>.csv per table.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// TableStore writes each table to BaseDir/<name>.csv with a header row.
type TableStore struct {
	mu      sync.Mutex
	baseDir string
}

// New creates the store, creating BaseDir when needed and checking that it is
// writable.
func New(cfg Config) (*TableStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &TableStore{baseDir: cfg.BaseDir}, nil
}

func (s *TableStore) path(table collector.Table) (string, error) {
	if err := storage.ValidateTable(table); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, table.Name+".csv"), nil
}

// Clear removes the table file. A missing file is not an error.
func (s *TableStore) Clear(_ context.Context, table collector.Table) error {
	p, err := s.path(table)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear %s: %w", table.Name, err)
	}
	return nil
}

// Append adds rows, writing the header first when the file is new.
func (s *TableStore) Append(_ context.Context, table collector.Table, rows []collector.Row) error {
	p, err := s.path(table)
	if err != nil {
		return err
	}
	if err := storage.ValidateRows(table, rows); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", table.Name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat %s: %w", table.Name, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(table.Header()); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s header: %w", table.Name, err)
		}
	}
	record := make([]string, len(table.Columns))
	for _, row := range rows {
		for i, cell := range row {
			record[i] = formatCell(cell)
		}
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s row: %w", table.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", table.Name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", table.Name, err)
	}
	return nil
}

// Close implements collector.TableStore.
func (s *TableStore) Close() error { return nil }

func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case int64:
		return strconv.FormatInt(c, 10)
	case int:
		return strconv.Itoa(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprint(c)
	}
}
