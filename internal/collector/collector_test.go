package collector

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchNeverExceedsSize(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 23; n++ {
		keywords := make([]string, n)
		for i := range keywords {
			keywords[i] = string(rune('a' + i))
		}
		batches := Batch(keywords, 5)
		require.Len(t, batches, int(math.Ceil(float64(n)/5)), "n=%d", n)
		total := 0
		for _, b := range batches {
			require.LessOrEqual(t, len(b), 5)
			require.NotEmpty(t, b)
			total += len(b)
		}
		require.Equal(t, n, total)
	}
}

func TestBatchCopiesInput(t *testing.T) {
	t.Parallel()

	in := []string{"a", "b", "c"}
	batches := Batch(in, 2)
	batches[0][0] = "z"
	assert.Equal(t, "a", in[0])
	assert.Equal(t, [][]string{{"z", "b"}, {"c"}}, batches)
}

func TestCollectionErrorWrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("timeout")
	err := NewCollectionError(SourceVisualTrend, "styles", []string{"tote bag"}, cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "visual_trend")
	assert.Contains(t, err.Error(), "tote bag")
	assert.Contains(t, err.Error(), `"styles"`)
}

func TestResultFailed(t *testing.T) {
	t.Parallel()

	fail := NewCollectionError(SourceMarketplace, "brands", []string{"x"}, ErrNoRows)
	assert.False(t, Result{}.Failed())
	assert.True(t, Result{Failures: []*CollectionError{fail}}.Failed())
	assert.False(t, Result{Rows: []Row{{1}}, Failures: []*CollectionError{fail}}.Failed())
}

func TestCatalogAccessors(t *testing.T) {
	t.Parallel()

	src := []Category{{Name: "brands", Keywords: []string{"Gucci"}}, {Name: "colors"}}
	cat := NewCatalog(src)
	src[0].Keywords[0] = "mutated"

	kw, ok := cat.Keywords("brands")
	require.True(t, ok)
	assert.Equal(t, []string{"Gucci"}, kw)
	assert.Equal(t, []string{"brands", "colors"}, cat.Names())
	assert.False(t, cat.Empty())
	assert.True(t, NewCatalog([]Category{{Name: "colors"}}).Empty())

	_, ok = cat.Keywords("missing")
	assert.False(t, ok)
}

func TestRecordRows(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 150.0
	rows := Rows([]PriceListing{
		{Query: "vintage Gucci", Title: "bag", Price: &price, DateScraped: day},
		{Query: "vintage Gucci", Title: "other"},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, 150.0, rows[0][2])
	assert.Nil(t, rows[1][2])

	table, ok := LookupTable(TablePriceData)
	require.True(t, ok)
	assert.Equal(t, ModeAppend, table.Mode)
	assert.Equal(t, []string{"query", "title", "price", "date_scraped"}, table.Header())
	for _, r := range rows {
		assert.Len(t, r, len(table.Columns))
	}
}
