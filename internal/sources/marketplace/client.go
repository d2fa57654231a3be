package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	collyfetcher "github.com/JakeFAU/bag-trend-collector/internal/fetcher/colly"
)

const searchPath = "/sch/i.html"

// Fetcher issues HTTP GETs.
type Fetcher interface {
	Fetch(ctx context.Context, req collyfetcher.Request) (collyfetcher.Response, error)
}

// ClientConfig configures EbayClient.
type ClientConfig struct {
	BaseURL     string
	MinPrice    int
	MaxListings int
}

// EbayClient searches completed, sold listings.
type EbayClient struct {
	fetcher Fetcher
	cfg     ClientConfig
}

// NewEbayClient builds a client over fetcher.
func NewEbayClient(fetcher Fetcher, cfg ClientConfig) *EbayClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxListings <= 0 {
		cfg.MaxListings = 20
	}
	return &EbayClient{fetcher: fetcher, cfg: cfg}
}

// SearchURL builds the sold-listings search URL for query, recently ended first.
func (c *EbayClient) SearchURL(query string) string {
	params := url.Values{}
	params.Set("_nkw", query)
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("_sop", "13")
	if c.cfg.MinPrice > 0 {
		params.Set("_udlo", strconv.Itoa(c.cfg.MinPrice))
	}
	return c.cfg.BaseURL + searchPath + "?" + params.Encode()
}

// SoldListings fetches and parses one results page for query.
func (c *EbayClient) SoldListings(ctx context.Context, query string) ([]Listing, error) {
	resp, err := c.fetcher.Fetch(ctx, collyfetcher.Request{URL: c.SearchURL(query)})
	if err != nil {
		return nil, fmt.Errorf("sold listings %q: %w", query, err)
	}
	return ParseListings(resp.Body, c.cfg.MaxListings)
}
