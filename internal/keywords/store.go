// Package keywords resolves the keyword catalog for a run and refreshes the
// local cache from a remote source.
package keywords

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
)

var errEmptyCatalog = errors.New("catalog document has no categories")

// document is the on-disk cache layout.
type document struct {
	SyncedAt   string               `yaml:"synced_at,omitempty" json:"synced_at,omitempty"`
	Categories []collector.Category `yaml:"categories" json:"categories"`
}

// Store reads the local keyword cache.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore builds a Store over the cache file at path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger.Named("keywords")}
}

// Load returns the cached catalog, or the built-in defaults when the cache is
// missing or unusable. Default categories the cache does not name are appended
// after the cached ones; a category the cache names is used as is, even when
// empty. It never touches the network.
func (s *Store) Load() collector.Catalog {
	if s.path == "" {
		return Defaults()
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("keyword cache not found, using defaults", zap.String("path", s.path))
		} else {
			s.logger.Warn("keyword cache unreadable, using defaults", zap.String("path", s.path), zap.Error(err))
		}
		return Defaults()
	}
	catalog, err := decodeCatalog(data)
	if err != nil {
		s.logger.Warn("keyword cache corrupt, using defaults", zap.String("path", s.path), zap.Error(err))
		return Defaults()
	}
	catalog, filled := withDefaults(catalog)
	if len(filled) > 0 {
		s.logger.Info("keyword cache lacks categories, using defaults for them",
			zap.String("path", s.path),
			zap.Strings("categories", filled),
		)
	}
	s.logger.Debug("keyword cache loaded",
		zap.String("path", s.path),
		zap.Int("categories", len(catalog.Categories)),
		zap.Time("synced_at", catalog.SyncedAt),
	)
	return catalog
}

// withDefaults appends every default category missing from catalog and
// reports the names it added.
func withDefaults(catalog collector.Catalog) (collector.Catalog, []string) {
	var filled []string
	for _, def := range Defaults().Categories {
		if _, ok := catalog.Keywords(def.Name); ok {
			continue
		}
		catalog.Categories = append(catalog.Categories, def)
		filled = append(filled, def.Name)
	}
	return catalog, filled
}

// decodeCatalog parses a YAML or JSON catalog document. Unnamed categories
// are dropped and repeated names keep their first occurrence.
func decodeCatalog(data []byte) (collector.Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return collector.Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	var syncedAt time.Time
	if doc.SyncedAt != "" {
		t, err := time.Parse(time.RFC3339, doc.SyncedAt)
		if err != nil {
			return collector.Catalog{}, fmt.Errorf("decode synced_at: %w", err)
		}
		syncedAt = t.UTC()
	}
	return normalize(doc.Categories, syncedAt)
}

func normalize(categories []collector.Category, syncedAt time.Time) (collector.Catalog, error) {
	seen := make(map[string]struct{}, len(categories))
	out := make([]collector.Category, 0, len(categories))
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		kws := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		out = append(out, collector.Category{Name: name, Keywords: kws})
	}
	if len(out) == 0 {
		return collector.Catalog{}, errEmptyCatalog
	}
	catalog := collector.NewCatalog(out)
	catalog.SyncedAt = syncedAt
	return catalog, nil
}

func encodeCatalog(catalog collector.Catalog) ([]byte, error) {
	doc := document{Categories: catalog.Categories}
	if !catalog.SyncedAt.IsZero() {
		doc.SyncedAt = catalog.SyncedAt.UTC().Format(time.RFC3339)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return data, nil
}
