package keywords

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	collyfetcher "github.com/JakeFAU/bag-trend-collector/internal/fetcher/colly"
)

// Remote is an upstream catalog source.
type Remote interface {
	FetchCatalog(ctx context.Context) ([]collector.Category, error)
}

// Fetcher issues HTTP GETs.
type Fetcher interface {
	Fetch(ctx context.Context, req collyfetcher.Request) (collyfetcher.Response, error)
}

// SheetRemote reads a published spreadsheet CSV export with the columns
// category,keyword.
type SheetRemote struct {
	fetcher Fetcher
	url     string
}

// NewSheetRemote builds a SheetRemote for url.
func NewSheetRemote(fetcher Fetcher, url string) *SheetRemote {
	return &SheetRemote{fetcher: fetcher, url: url}
}

// FetchCatalog implements Remote.
func (r *SheetRemote) FetchCatalog(ctx context.Context) ([]collector.Category, error) {
	resp, err := r.fetcher.Fetch(ctx, collyfetcher.Request{URL: r.url})
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	return parseSheet(resp.Body)
}

func parseSheet(body []byte) ([]collector.Category, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		order []string
		byCat = map[string][]string{}
		first = true
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse sheet csv: %w", err)
		}
		if first {
			first = false
			if len(record) > 0 {
				record[0] = strings.TrimPrefix(record[0], "\ufeff")
			}
			if len(record) >= 2 && strings.EqualFold(strings.TrimSpace(record[0]), "category") {
				continue
			}
		}
		if len(record) < 2 {
			continue
		}
		cat := strings.TrimSpace(record[0])
		kw := strings.TrimSpace(record[1])
		if cat == "" || kw == "" {
			continue
		}
		if _, ok := byCat[cat]; !ok {
			order = append(order, cat)
		}
		byCat[cat] = append(byCat[cat], kw)
	}

	out := make([]collector.Category, 0, len(order))
	for _, name := range order {
		out = append(out, collector.Category{Name: name, Keywords: byCat[name]})
	}
	return out, nil
}

// GCSRemote reads a YAML or JSON catalog document from a GCS object.
type GCSRemote struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSRemote builds a GCSRemote.
func NewGCSRemote(client *storage.Client, bucket, object string) (*GCSRemote, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("bucket and object are required")
	}
	return &GCSRemote{client: client, bucket: bucket, object: object}, nil
}

// FetchCatalog implements Remote.
func (r *GCSRemote) FetchCatalog(ctx context.Context) ([]collector.Category, error) {
	reader, err := r.client.Bucket(r.bucket).Object(r.object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", r.bucket, r.object, err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", r.bucket, r.object, err)
	}
	catalog, err := decodeCatalog(data)
	if err != nil {
		return nil, err
	}
	return catalog.Categories, nil
}
