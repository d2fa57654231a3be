package marketplace

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const placeholderTitle = "shop on ebay"

var numberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// Listing is one parsed search result before it is stamped with a query.
type Listing struct {
	Title string
	Price *float64
}

// ParsePrice turns listing price text into a number. A range such as
// "$120.00 to $180.00" (spaced or not) yields the mean of its two bounds. Text with no
// number yields nil.
func ParsePrice(text string) *float64 {
	matches := numberPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	values := make([]float64, 0, 2)
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			continue
		}
		values = append(values, v)
		if len(values) == 2 {
			break
		}
	}
	if len(values) == 0 {
		return nil
	}
	price := values[0]
	if len(values) == 2 && strings.Contains(strings.ToLower(text), "to") {
		price = (values[0] + values[1]) / 2
	}
	return &price
}

// ParseListings extracts at most limit listings from a sold-listings page.
func ParseListings(body []byte, limit int) ([]Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listings html: %w", err)
	}
	var out []Listing
	doc.Find(".s-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := strings.TrimSpace(item.Find(".s-item__title").First().Text())
		if title == "" || strings.EqualFold(title, placeholderTitle) {
			return true
		}
		priceText := strings.TrimSpace(item.Find(".s-item__price").First().Text())
		out = append(out, Listing{Title: title, Price: ParsePrice(priceText)})
		return limit <= 0 || len(out) < limit
	})
	return out, nil
}

// Qualify prefixes query with qualifier unless it already holds the
// qualifier as a whole word, ignoring case.
func Qualify(query, qualifier string) string {
	query = strings.TrimSpace(query)
	if qualifier == "" {
		return query
	}
	for _, word := range strings.Fields(query) {
		if strings.EqualFold(word, qualifier) {
			return query
		}
	}
	return qualifier + " " + query
}
