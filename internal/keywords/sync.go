package keywords

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JakeFAU/bag-trend-collector/internal/clock/system"
	"github.com/JakeFAU/bag-trend-collector/internal/collector"
)

// Syncer refreshes the local cache from a Remote.
type Syncer struct {
	remote Remote
	path   string
	clock  collector.Clock
	logger *zap.Logger
}

// NewSyncer builds a Syncer that writes to path.
func NewSyncer(remote Remote, path string, clock collector.Clock, logger *zap.Logger) *Syncer {
	if clock == nil {
		clock = system.Clock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{remote: remote, path: path, clock: clock, logger: logger.Named("keywords")}
}

// Sync pulls the remote catalog and replaces the cache file. On failure the
// existing cache is left untouched.
func (s *Syncer) Sync(ctx context.Context) (collector.Catalog, error) {
	categories, err := s.remote.FetchCatalog(ctx)
	if err != nil {
		return collector.Catalog{}, fmt.Errorf("fetch remote catalog: %w", err)
	}
	catalog, err := normalize(categories, s.clock.Now().UTC())
	if err != nil {
		return collector.Catalog{}, fmt.Errorf("remote catalog: %w", err)
	}
	data, err := encodeCatalog(catalog)
	if err != nil {
		return collector.Catalog{}, err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return collector.Catalog{}, err
	}
	s.logger.Info("keyword cache refreshed",
		zap.String("path", s.path),
		zap.Int("categories", len(catalog.Categories)),
	)
	return catalog, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".keywords-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp cache: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}
