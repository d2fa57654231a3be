package keywords

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/bag-trend-collector/internal/clock/system"
	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	collyfetcher "github.com/JakeFAU/bag-trend-collector/internal/fetcher/colly"
)

type remoteFunc func(ctx context.Context) ([]collector.Category, error)

func (f remoteFunc) FetchCatalog(ctx context.Context) ([]collector.Category, error) { return f(ctx) }

func TestSyncWritesCacheReadableByStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "keywords.yaml")
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	remote := remoteFunc(func(context.Context) ([]collector.Category, error) {
		return []collector.Category{{Name: "brands", Keywords: []string{"Gucci bag", "Prada bag"}}}, nil
	})

	synced, err := NewSyncer(remote, path, system.NewFixed(now), nil).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now, synced.SyncedAt)

	loaded := NewStore(path, nil).Load()
	brands, _ := loaded.Keywords(CategoryBrands)
	assert.Equal(t, []string{"Gucci bag", "Prada bag"}, brands)
	assert.Equal(t, now, loaded.SyncedAt)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestSyncFailureKeepsExistingCache(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keywords.yaml")
	original := []byte("categories:\n  - name: colors\n    keywords: [red bag]\n")
	require.NoError(t, os.WriteFile(path, original, 0o600))

	failing := remoteFunc(func(context.Context) ([]collector.Category, error) { return nil, errors.New("sheet offline") })
	_, err := NewSyncer(failing, path, nil, nil).Sync(context.Background())
	require.Error(t, err)

	empty := remoteFunc(func(context.Context) ([]collector.Category, error) { return nil, nil })
	_, err = NewSyncer(empty, path, nil, nil).Sync(context.Background())
	require.ErrorIs(t, err, errEmptyCatalog)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestSheetRemoteParsesCSV(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = fmt.Fprint(w, "\ufeffcategory,keyword\nbrands,Gucci bag\ncolors,red bag\n\nbrands, Prada bag\n,orphan\nstyles,\n")
	}))
	defer srv.Close()

	remote := NewSheetRemote(collyfetcher.New(collyfetcher.Config{}), srv.URL+"/export?format=csv")
	cats, err := remote.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []collector.Category{
		{Name: "brands", Keywords: []string{"Gucci bag", "Prada bag"}},
		{Name: "colors", Keywords: []string{"red bag"}},
	}, cats)
}

func TestSheetRemoteHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewSheetRemote(collyfetcher.New(collyfetcher.Config{}), srv.URL).FetchCatalog(context.Background())
	require.Error(t, err)
}

func TestGCSRemoteReadsObject(t *testing.T) {
	t.Parallel()

	body := "categories:\n  - name: styles\n    keywords: [tote bag, clutch bag]\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/keywords.yaml") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = fmt.Fprint(w, body)
	}))
	defer srv.Close()

	client, err := gcs.NewClient(context.Background(), option.WithEndpoint(srv.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	remote, err := NewGCSRemote(client, "config-bucket", "keywords.yaml")
	require.NoError(t, err)
	cats, err := remote.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []collector.Category{{Name: "styles", Keywords: []string{"tote bag", "clutch bag"}}}, cats)
}

func TestNewGCSRemoteValidation(t *testing.T) {
	t.Parallel()

	_, err := NewGCSRemote(nil, "b", "o")
	require.Error(t, err)
}
