package local

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
)

func TestNewRequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = New(Config{BaseDir: file})
	require.Error(t, err)
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "tables")
	s, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	table, _ := collector.LookupTable(collector.TablePriceData)
	require.NoError(t, s.Append(ctx, table, []collector.Row{{"vintage Gucci", "Jackie", 1250.5, "2026-01-01T00:00:00Z"}}))
	require.NoError(t, s.Append(ctx, table, []collector.Row{{"vintage Gucci", "GG canvas", nil, "2026-01-01T00:00:00Z"}}))

	data, err := os.ReadFile(filepath.Join(dir, "price_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "query,title,price,date_scraped\n"+
		"vintage Gucci,Jackie,1250.5,2026-01-01T00:00:00Z\n"+
		"vintage Gucci,GG canvas,,2026-01-01T00:00:00Z\n", string(data))
}

func TestClearIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	table, _ := collector.LookupTable(collector.TablePinterestData)

	require.NoError(t, s.Clear(ctx, table))
	require.NoError(t, s.Append(ctx, table, []collector.Row{{"tote", true, "2026-01-01"}}))
	require.NoError(t, s.Clear(ctx, table))
	require.NoError(t, s.Clear(ctx, table))

	assert.Empty(t, readRows(t, dir, table.Name))
}

func TestAppendQuotesCells(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	table, _ := collector.LookupTable(collector.TableBrandTrends)

	require.NoError(t, s.Append(ctx, table, []collector.Row{
		{"2026-01-01", "Chanel bag", int64(55)},
		{"2026-01-02", "Chanel bag, quilted", int64(60)},
	}))
	assert.Equal(t, [][]string{
		{"2026-01-01", "Chanel bag", "55"},
		{"2026-01-02", "Chanel bag, quilted", "60"},
	}, readRows(t, dir, table.Name))
}

func TestRejectsTraversal(t *testing.T) {
	t.Parallel()

	s, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	bad := collector.Table{Name: "../escape", Columns: []collector.Column{{Name: "a"}}}
	require.Error(t, s.Append(context.Background(), bad, []collector.Row{{"x"}}))
}

func TestFormatCell(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "true", formatCell(true))
	assert.Equal(t, "3", formatCell(3))
	assert.Equal(t, "0.1", formatCell(0.1))
}

// readRows returns the data rows of a table file without its header. A
// missing file reads as empty.
func readRows(t *testing.T, dir, name string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, name+".csv"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	if len(records) == 0 {
		return nil
	}
	return records[1:]
}
