package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
)

func TestValidateTable(t *testing.T) {
	t.Parallel()

	for _, table := range collector.Tables() {
		require.NoError(t, ValidateTable(table), table.Name)
	}
	assert.ErrorIs(t, ValidateTable(collector.Table{Name: "../etc", Columns: []collector.Column{{Name: "a"}}}), ErrUnknownTable)
	assert.ErrorIs(t, ValidateTable(collector.Table{Name: "empty"}), ErrUnknownTable)
}

func TestValidateRows(t *testing.T) {
	t.Parallel()

	table, _ := collector.LookupTable(collector.TableErrorLog)
	require.NoError(t, ValidateRows(table, []collector.Row{{"t", "s", "m"}}))
	assert.Error(t, ValidateRows(table, []collector.Row{{"t", "s"}}))
}
