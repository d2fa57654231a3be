package postgres

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/storage"
	"github.com/JakeFAU/bag-trend-collector/internal/storage/postgres/migrations"
)

func newMockStore(t *testing.T) (*TableStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestClearTruncates(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	table, _ := collector.LookupTable(collector.TableBrandTrends)

	mock.ExpectExec(`TRUNCATE TABLE "brand_trends"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	require.NoError(t, store.Clear(context.Background(), table))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearMissingTableIsNoop(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	table, _ := collector.LookupTable(collector.TablePinterestData)

	mock.ExpectExec(`TRUNCATE TABLE "pinterest_data"`).WillReturnError(&pgconn.PgError{Code: undefinedTable})
	mock.ExpectExec(`TRUNCATE TABLE "pinterest_data"`).WillReturnError(&pgconn.PgError{Code: undefinedTable})
	require.NoError(t, store.Clear(context.Background(), table))
	require.NoError(t, store.Clear(context.Background(), table))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearPropagatesOtherErrors(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	table, _ := collector.LookupTable(collector.TableColorTrends)

	mock.ExpectExec(`TRUNCATE TABLE "color_trends"`).WillReturnError(&pgconn.PgError{Code: "42501"})
	require.Error(t, store.Clear(context.Background(), table))
}

func TestAppendCopiesRows(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	table, _ := collector.LookupTable(collector.TablePriceData)
	rows := []collector.Row{
		{"vintage Gucci", "Jackie", 1250.0, "2026-01-01T00:00:00Z"},
		{"vintage Gucci", "GG canvas", nil, "2026-01-01T00:00:00Z"},
	}

	mock.ExpectCopyFrom(pgx.Identifier{"price_data"}, []string{"query", "title", "price", "date_scraped"}).
		WillReturnResult(2)
	require.NoError(t, store.Append(context.Background(), table, rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendShortCopyFails(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	table, _ := collector.LookupTable(collector.TableErrorLog)

	mock.ExpectCopyFrom(pgx.Identifier{"error_log"}, []string{"timestamp", "source", "message"}).
		WillReturnResult(0)
	err := store.Append(context.Background(), table, []collector.Row{{"t", "s", "m"}})
	require.Error(t, err)
}

func TestAppendCopyError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	table, _ := collector.LookupTable(collector.TableErrorLog)

	mock.ExpectCopyFrom(pgx.Identifier{"error_log"}, []string{"timestamp", "source", "message"}).
		WillReturnError(errors.New("connection reset"))
	require.Error(t, store.Append(context.Background(), table, []collector.Row{{"t", "s", "m"}}))
}

func TestAppendEmptyAndInvalid(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	table, _ := collector.LookupTable(collector.TableErrorLog)

	require.NoError(t, store.Append(context.Background(), table, nil))
	require.ErrorIs(t, store.Append(context.Background(), collector.Table{Name: "x;drop"}, nil), storage.ErrUnknownTable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil)
	require.Error(t, err)
}

func TestMigrationsCoverEveryTable(t *testing.T) {
	t.Parallel()

	up, err := fs.ReadFile(migrations.FS, "000001_create_tables.up.sql")
	require.NoError(t, err)
	for _, table := range collector.Tables() {
		assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+table.Name+" (")
		for _, col := range table.Header() {
			assert.Contains(t, string(up), col)
		}
	}
}
