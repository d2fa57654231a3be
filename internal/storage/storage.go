// Package storage holds what the table store backends share.
package storage

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
)

// ErrUnknownTable is returned for tables with invalid names or no columns.
var ErrUnknownTable = errors.New("unknown table")

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateTable checks that table can be addressed safely by a backend.
func ValidateTable(table collector.Table) error {
	if !validTableName.MatchString(table.Name) {
		return fmt.Errorf("%w: invalid table name %q", ErrUnknownTable, table.Name)
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("%w: table %q has no columns", ErrUnknownTable, table.Name)
	}
	return nil
}

// ValidateRows checks that every row matches the table width.
func ValidateRows(table collector.Table, rows []collector.Row) error {
	for i, row := range rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("table %s row %d: got %d cells, want %d", table.Name, i, len(row), len(table.Columns))
		}
	}
	return nil
}
