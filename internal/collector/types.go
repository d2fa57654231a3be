// Package collector defines the core types shared by the keyword store, the
// source adapters, the result writer and the run orchestrator.
package collector

import (
	"time"
)

// SourceID names an external signal source.
type SourceID string

// Known sources.
const (
	SourceSearchInterest SourceID = "search_interest"
	SourceMarketplace    SourceID = "marketplace"
	SourceVisualTrend    SourceID = "visual_trend"
)

// Valid reports whether id is one of the known sources.
func (id SourceID) Valid() bool {
	switch id {
	case SourceSearchInterest, SourceMarketplace, SourceVisualTrend:
		return true
	default:
		return false
	}
}

// Category is a named, ordered group of keywords.
type Category struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Catalog is the ordered keyword catalog for one run. It is built once at
// start-up and must not be mutated afterwards.
type Catalog struct {
	Categories []Category
	SyncedAt   time.Time
}

// NewCatalog copies categories into a Catalog.
func NewCatalog(categories []Category) Catalog {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		out = append(out, Category{Name: c.Name, Keywords: append([]string(nil), c.Keywords...)})
	}
	return Catalog{Categories: out}
}

// Keywords returns a copy of the keywords for the named category.
func (c Catalog) Keywords(name string) ([]string, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return append([]string(nil), cat.Keywords...), true
		}
	}
	return nil, false
}

// Names lists the category names in catalog order.
func (c Catalog) Names() []string {
	out := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, cat.Name)
	}
	return out
}

// Empty reports whether the catalog has no keywords at all.
func (c Catalog) Empty() bool {
	for _, cat := range c.Categories {
		if len(cat.Keywords) > 0 {
			return false
		}
	}
	return true
}

// InterestSample is one day of relative search interest for a keyword.
type InterestSample struct {
	Date     time.Time
	Keyword  string
	Interest int
}

// PriceListing is a single sold marketplace listing. Price is nil when the
// listing text could not be parsed.
type PriceListing struct {
	Query       string
	Title       string
	Price       *float64
	DateScraped time.Time
}

// TrendSignal is a coarse presence signal from the visual-trend source.
type TrendSignal struct {
	Query    string
	Presence bool
	Date     time.Time
}

// ErrorRecord is one entry of the append-only error log.
type ErrorRecord struct {
	Timestamp time.Time
	Source    string
	Message   string
}

// Row is an ordered set of cell values matching a table schema.
type Row []any

// Record is implemented by every entity an adapter can emit.
type Record interface {
	Row() Row
}

// Row implements Record.
func (s InterestSample) Row() Row { return Row{s.Date, s.Keyword, s.Interest} }

// Row implements Record.
func (p PriceListing) Row() Row {
	var price any
	if p.Price != nil {
		price = *p.Price
	}
	return Row{p.Query, p.Title, price, p.DateScraped}
}

// Row implements Record.
func (t TrendSignal) Row() Row { return Row{t.Query, t.Presence, t.Date} }

// Row implements Record.
func (e ErrorRecord) Row() Row { return Row{e.Timestamp, e.Source, e.Message} }

// Rows converts records into rows.
func Rows[T Record](records []T) []Row {
	out := make([]Row, 0, len(records))
	for _, r := range records {
		out = append(out, r.Row())
	}
	return out
}
