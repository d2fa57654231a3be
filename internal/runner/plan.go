package runner

import (
	"fmt"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
	"github.com/JakeFAU/bag-trend-collector/internal/keywords"
)

// PlanEntry routes one category of one source to a destination table.
type PlanEntry struct {
	Source   collector.SourceID
	Category string
	Table    collector.Table
}

func entry(source collector.SourceID, category, table string) PlanEntry {
	t, ok := collector.LookupTable(table)
	if !ok {
		panic(fmt.Sprintf("plan references unknown table %q", table))
	}
	return PlanEntry{Source: source, Category: category, Table: t}
}

// DefaultPlan is the static run order.
func DefaultPlan() []PlanEntry {
	return []PlanEntry{
		entry(collector.SourceSearchInterest, keywords.CategoryBrands, collector.TableBrandTrends),
		entry(collector.SourceSearchInterest, keywords.CategoryVintageBrands, collector.TableVintageBrandTrends),
		entry(collector.SourceSearchInterest, keywords.CategoryColors, collector.TableColorTrends),
		entry(collector.SourceSearchInterest, keywords.CategoryStyles, collector.TableStyleTrends),
		entry(collector.SourceSearchInterest, keywords.CategoryTextures, collector.TableTextureTrends),
		entry(collector.SourceSearchInterest, keywords.CategoryCombinations, collector.TableCombinationTrends),
		entry(collector.SourceMarketplace, keywords.CategoryBrands, collector.TablePriceData),
		entry(collector.SourceVisualTrend, keywords.CategoryCombinations, collector.TablePinterestData),
	}
}

// Filter keeps the entries whose source is active, in plan order.
func Filter(plan []PlanEntry, active []collector.SourceID) []PlanEntry {
	on := make(map[collector.SourceID]bool, len(active))
	for _, id := range active {
		on[id] = true
	}
	out := make([]PlanEntry, 0, len(plan))
	for _, e := range plan {
		if on[e.Source] {
			out = append(out, e)
		}
	}
	return out
}

// Lookup finds the plan entry for source and category.
func Lookup(plan []PlanEntry, source collector.SourceID, category string) (PlanEntry, bool) {
	for _, e := range plan {
		if e.Source == source && e.Category == category {
			return e, true
		}
	}
	return PlanEntry{}, false
}

// replaceTables lists each replace-mode table once, in first-use order.
func replaceTables(plan []PlanEntry) []collector.Table {
	seen := make(map[string]bool)
	var out []collector.Table
	for _, e := range plan {
		if e.Table.Mode != collector.ModeReplace || seen[e.Table.Name] {
			continue
		}
		seen[e.Table.Name] = true
		out = append(out, e.Table)
	}
	return out
}
