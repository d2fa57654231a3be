package keywords

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingCacheUsesDefaults(t *testing.T) {
	t.Parallel()

	catalog := NewStore(filepath.Join(t.TempDir(), "absent.yaml"), nil).Load()
	assert.Equal(t, Defaults(), catalog)
	assert.Equal(t, []string{
		CategoryBrands, CategoryVintageBrands, CategoryColors,
		CategoryStyles, CategoryTextures, CategoryCombinations,
	}, catalog.Names())

	brands, ok := catalog.Keywords(CategoryBrands)
	require.True(t, ok)
	assert.Len(t, brands, 6)
}

func TestLoadCorruptCacheUsesDefaults(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"garbage":       "{{{ not yaml",
		"no categories": "synced_at: 2026-01-02T03:04:05Z\ncategories: []\n",
		"unnamed only":  "categories:\n  - keywords: [a]\n",
		"bad timestamp": "synced_at: yesterday\ncategories:\n  - name: brands\n    keywords: [a]\n",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "keywords.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			assert.Equal(t, Defaults(), NewStore(path, nil).Load())
		})
	}
}

func TestLoadCacheKeepsOrder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keywords.yaml")
	body := `synced_at: 2026-01-02T03:04:05Z
categories:
  - name: textures
    keywords: ["woven bag", " ", "suede bag"]
  - name: brands
    keywords: ["Gucci bag"]
  - name: textures
    keywords: ["ignored"]
  - name: empty
    keywords: []
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	catalog := NewStore(path, nil).Load()
	assert.Equal(t, []string{
		"textures", "brands", "empty",
		CategoryVintageBrands, CategoryColors, CategoryStyles, CategoryCombinations,
	}, catalog.Names())
	empty, ok := catalog.Keywords("empty")
	require.True(t, ok)
	assert.Empty(t, empty)
	textures, _ := catalog.Keywords("textures")
	assert.Equal(t, []string{"woven bag", "suede bag"}, textures)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), catalog.SyncedAt)
	assert.False(t, catalog.Empty())
}

func TestLoadAcceptsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keywords.json")
	body := `{"synced_at":"2026-01-02T03:04:05Z","categories":[{"name":"colors","keywords":["red bag"]}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	catalog := NewStore(path, nil).Load()
	colors, _ := catalog.Keywords(CategoryColors)
	assert.Equal(t, []string{"red bag"}, colors)
}

func TestLoadFillsMissingCategoriesFromDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keywords.yaml")
	body := "categories:\n  - name: brands\n    keywords: [\"Gucci bag\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	catalog := NewStore(path, nil).Load()
	assert.Equal(t, Defaults().Names(), catalog.Names())
	brands, _ := catalog.Keywords(CategoryBrands)
	assert.Equal(t, []string{"Gucci bag"}, brands)
	colors, ok := catalog.Keywords(CategoryColors)
	require.True(t, ok)
	want, _ := Defaults().Keywords(CategoryColors)
	assert.Equal(t, want, colors)
}

func TestDefaultsAreIndependentCopies(t *testing.T) {
	t.Parallel()

	a := Defaults()
	a.Categories[0].Keywords[0] = "mutated"
	b := Defaults()
	assert.Equal(t, "Hermès bag", b.Categories[0].Keywords[0])
}
