// Package writer persists normalized rows into destination tables.
package writer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/metrics"
)

// Writer coerces rows and writes them through a TableStore.
type Writer struct {
	store  collector.TableStore
	logger *zap.Logger
}

// New builds a Writer over store.
func New(store collector.TableStore, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, logger: logger.Named("writer")}
}

// Replace clears table then writes rows.
func (w *Writer) Replace(ctx context.Context, table collector.Table, rows []collector.Row) error {
	coerced, err := Coerce(table, rows)
	if err != nil {
		return err
	}
	if err := w.store.Clear(ctx, table); err != nil {
		return fmt.Errorf("replace %s: %w", table.Name, err)
	}
	return w.append(ctx, table, coerced)
}

// Append adds rows to table.
func (w *Writer) Append(ctx context.Context, table collector.Table, rows []collector.Row) error {
	coerced, err := Coerce(table, rows)
	if err != nil {
		return err
	}
	return w.append(ctx, table, coerced)
}

// Clear empties table. Clearing a missing table is not an error.
func (w *Writer) Clear(ctx context.Context, table collector.Table) error {
	if err := w.store.Clear(ctx, table); err != nil {
		return fmt.Errorf("clear %s: %w", table.Name, err)
	}
	w.logger.Debug("table cleared", zap.String("table", table.Name))
	return nil
}

// Write uses the table's own mode: replace tables are replaced and append
// tables are appended to.
func (w *Writer) Write(ctx context.Context, table collector.Table, rows []collector.Row) error {
	if table.Mode == collector.ModeReplace {
		return w.Replace(ctx, table, rows)
	}
	return w.Append(ctx, table, rows)
}

func (w *Writer) append(ctx context.Context, table collector.Table, rows []collector.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := w.store.Append(ctx, table, rows); err != nil {
		return fmt.Errorf("append %s: %w", table.Name, err)
	}
	metrics.ObserveRowsWritten(table.Name, len(rows))
	w.logger.Debug("rows written", zap.String("table", table.Name), zap.Int("rows", len(rows)))
	return nil
}
