// Package config loads and validates collector configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Pacing   PacingConfig   `mapstructure:"pacing"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Keywords KeywordsConfig `mapstructure:"keywords"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Google   GoogleConfig   `mapstructure:"google"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	// DryRun keeps every table and notification in memory.
	DryRun bool `mapstructure:"dry_run"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// PacingConfig bounds the randomized delay between outbound calls.
type PacingConfig struct {
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

// HTTPConfig configures the shared HTTP fetcher.
type HTTPConfig struct {
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	PerHostRPS     float64 `mapstructure:"per_host_rps"`
	PerHostBurst   int     `mapstructure:"per_host_burst"`
}

// SourcesConfig lists the active sources and their settings.
type SourcesConfig struct {
	Active         []string             `mapstructure:"active"`
	SearchInterest SearchInterestConfig `mapstructure:"search_interest"`
	Marketplace    MarketplaceConfig    `mapstructure:"marketplace"`
	VisualTrend    VisualTrendConfig    `mapstructure:"visual_trend"`
}

// SearchInterestConfig configures the Google Trends client.
type SearchInterestConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	HL           string `mapstructure:"hl"`
	TZ           int    `mapstructure:"tz"`
	Geo          string `mapstructure:"geo"`
	LookbackDays int    `mapstructure:"lookback_days"`
}

// MarketplaceConfig configures the sold-listings scraper.
type MarketplaceConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Qualifier   string `mapstructure:"qualifier"`
	MinPrice    int    `mapstructure:"min_price"`
	MaxListings int    `mapstructure:"max_listings"`
}

// VisualTrendConfig configures the headless visual-trend lookup.
type VisualTrendConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	SettleMillis      int    `mapstructure:"settle_ms"`
	// DisableBrowser skips launching Chrome; every keyword is logged as a failure.
	DisableBrowser bool `mapstructure:"disable_browser"`
}

// KeywordsConfig locates the keyword cache and its remote origin.
type KeywordsConfig struct {
	CachePath string       `mapstructure:"cache_path"`
	Remote    RemoteConfig `mapstructure:"remote"`
}

// RemoteConfig describes where sync-keywords pulls the catalog from.
type RemoteConfig struct {
	Kind   string `mapstructure:"kind"`
	URL    string `mapstructure:"url"`
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
}

// Remote kinds.
const (
	RemoteSheet = "sheet"
	RemoteGCS   = "gcs"
)

// StorageConfig selects the destination table backend.
type StorageConfig struct {
	Backend        string `mapstructure:"backend"`
	Dir            string `mapstructure:"dir"`
	DSN            string `mapstructure:"dsn"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendLocal    = "local"
	BackendPostgres = "postgres"
)

// CredentialSource says where Google clients get credentials from.
type CredentialSource string

// Credential sources.
const (
	CredentialsDefault CredentialSource = "default"
	CredentialsFile    CredentialSource = "file"
	CredentialsNone    CredentialSource = "none"
)

// GoogleConfig holds credentials and project for GCS and Pub/Sub.
type GoogleConfig struct {
	CredentialSource CredentialSource `mapstructure:"credential_source"`
	CredentialsFile  string           `mapstructure:"credentials_file"`
	ProjectID        string           `mapstructure:"project_id"`
}

// NotifyConfig holds run notification settings.
type NotifyConfig struct {
	Topic string `mapstructure:"topic"`
}

// MetricsConfig controls metric exposure for the batch run.
type MetricsConfig struct {
	ListenAddr     string `mapstructure:"listen_addr"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	JobName        string `mapstructure:"job_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRENDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		// Without an explicit file, look in the usual places and fall back to
		// defaults plus environment when nothing is there.
		v.SetConfigName("trendcollector")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/trendcollector/")
		v.AddConfigPath("$HOME/.trendcollector")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("pacing.min_delay", "5s")
	v.SetDefault("pacing.max_delay", "15s")
	v.SetDefault("http.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.per_host_rps", 1)
	v.SetDefault("http.per_host_burst", 2)
	v.SetDefault("sources.active", []string{string(collector.SourceSearchInterest)})
	v.SetDefault("sources.search_interest.base_url", "https://trends.google.com")
	v.SetDefault("sources.search_interest.hl", "en-US")
	v.SetDefault("sources.search_interest.tz", 360)
	v.SetDefault("sources.search_interest.geo", "")
	v.SetDefault("sources.search_interest.lookback_days", 90)
	v.SetDefault("sources.marketplace.base_url", "https://www.ebay.com")
	v.SetDefault("sources.marketplace.qualifier", "vintage")
	v.SetDefault("sources.marketplace.min_price", 100)
	v.SetDefault("sources.marketplace.max_listings", 20)
	v.SetDefault("sources.visual_trend.base_url", "https://www.pinterest.com")
	v.SetDefault("sources.visual_trend.nav_timeout_seconds", 45)
	v.SetDefault("sources.visual_trend.settle_ms", 3000)
	v.SetDefault("sources.visual_trend.disable_browser", false)
	v.SetDefault("keywords.cache_path", "data/keywords.yaml")
	v.SetDefault("keywords.remote.kind", "")
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.dir", "data/tables")
	v.SetDefault("storage.max_conns", 4)
	v.SetDefault("storage.migrate_on_start", false)
	v.SetDefault("google.credential_source", string(CredentialsDefault))
	v.SetDefault("metrics.job_name", "bag_trend_collector")
	v.SetDefault("dry_run", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Pacing.MinDelay < 0 {
		return fmt.Errorf("pacing.min_delay must be >= 0")
	}
	if c.Pacing.MaxDelay < c.Pacing.MinDelay {
		return fmt.Errorf("pacing.max_delay must be >= pacing.min_delay")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.PerHostRPS < 0 {
		return fmt.Errorf("http.per_host_rps must be >= 0")
	}
	for _, id := range c.Sources.Active {
		if !collector.SourceID(id).Valid() {
			return fmt.Errorf("sources.active: unknown source %q", id)
		}
	}
	if c.Sources.SearchInterest.LookbackDays <= 0 {
		return fmt.Errorf("sources.search_interest.lookback_days must be > 0")
	}
	if c.Sources.Marketplace.MaxListings <= 0 {
		return fmt.Errorf("sources.marketplace.max_listings must be > 0")
	}
	if c.Keywords.CachePath == "" {
		return fmt.Errorf("keywords.cache_path must be set")
	}
	switch c.Keywords.Remote.Kind {
	case "":
	case RemoteSheet:
		if c.Keywords.Remote.URL == "" {
			return fmt.Errorf("keywords.remote.url must be set for sheet remotes")
		}
	case RemoteGCS:
		if c.Keywords.Remote.Bucket == "" || c.Keywords.Remote.Object == "" {
			return fmt.Errorf("keywords.remote.bucket and keywords.remote.object must be set for gcs remotes")
		}
	default:
		return fmt.Errorf("keywords.remote.kind: unknown kind %q", c.Keywords.Remote.Kind)
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLocal:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir must be set for the local backend")
		}
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	switch c.Google.CredentialSource {
	case CredentialsDefault, CredentialsNone:
	case CredentialsFile:
		if c.Google.CredentialsFile == "" {
			return fmt.Errorf("google.credentials_file must be set when google.credential_source is file")
		}
	default:
		return fmt.Errorf("google.credential_source: unknown source %q", c.Google.CredentialSource)
	}
	if c.Notify.Topic != "" && c.Google.ProjectID == "" {
		return fmt.Errorf("google.project_id must be set when notify.topic is set")
	}
	return nil
}

// ActiveSources converts the active list to source IDs.
func (c Config) ActiveSources() []collector.SourceID {
	out := make([]collector.SourceID, 0, len(c.Sources.Active))
	for _, id := range c.Sources.Active {
		out = append(out, collector.SourceID(id))
	}
	return out
}

// HTTPTimeout converts the HTTP timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
