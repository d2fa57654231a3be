package keywords

import "github.com/JakeFAU/bag-trend-collector/internal/collector"

// Category names in the built-in catalog.
const (
	CategoryBrands        = "brands"
	CategoryVintageBrands = "vintage_brands"
	CategoryColors        = "colors"
	CategoryStyles        = "styles"
	CategoryTextures      = "textures"
	CategoryCombinations  = "combinations"
)

var defaultCategories = []collector.Category{
	{Name: CategoryBrands, Keywords: []string{
		"Hermès bag", "Chanel bag", "Louis Vuitton bag", "Gucci bag", "Prada bag", "Bottega Veneta bag",
	}},
	{Name: CategoryVintageBrands, Keywords: []string{
		"vintage Hermès bag", "vintage Chanel bag", "vintage Louis Vuitton bag",
		"vintage Gucci bag", "vintage Prada bag", "vintage Bottega Veneta bag",
	}},
	{Name: CategoryColors, Keywords: []string{
		"black bag", "brown bag", "beige bag", "white bag", "green bag", "red bag", "blue bag", "pink bag",
	}},
	{Name: CategoryStyles, Keywords: []string{
		"shoulder bag", "tote bag", "crossbody bag", "clutch bag", "bucket bag", "satchel bag",
	}},
	{Name: CategoryTextures, Keywords: []string{
		"leather bag", "quilted bag", "canvas bag", "suede bag", "patent leather bag", "woven bag",
	}},
	{Name: CategoryCombinations, Keywords: []string{
		"Bottega Veneta Intrecciato", "Green Leather Shoulder Bag", "Woven Canvas Tote",
		"Chanel Quilted bag", "Beige Suede Crossbody",
	}},
}

// Defaults returns a fresh copy of the built-in catalog.
func Defaults() collector.Catalog {
	return collector.NewCatalog(defaultCategories)
}
