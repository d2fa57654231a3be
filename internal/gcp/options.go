// Package gcp turns credential settings into Google API client options.
package gcp

import (
	"fmt"
	"os"

	"google.golang.org/api/option"

	"github.com/JakeFAU/bag-trend-collector/internal/config"
)

// ClientOptions maps the configured credential source to client options for
// the GCS and Pub/Sub clients.
func ClientOptions(cfg config.GoogleConfig) ([]option.ClientOption, error) {
	switch cfg.CredentialSource {
	case config.CredentialsDefault, "":
		return nil, nil
	case config.CredentialsFile:
		if cfg.CredentialsFile == "" {
			return nil, fmt.Errorf("google.credentials_file is required")
		}
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("google credentials file: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, nil
	case config.CredentialsNone:
		return []option.ClientOption{option.WithoutAuthentication()}, nil
	default:
		return nil, fmt.Errorf("unknown credential source %q", cfg.CredentialSource)
	}
}
