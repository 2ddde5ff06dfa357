package classifier

import (
	"strings"

	"bidforecast/server/internal/models"
)

// midCategoryAliases normalizes the generic buckets of the vehicle table
var midCategoryAliases = map[string]string{
	"화물차":     "truck",
	"cargo":   "truck",
	"차량":      "other-vehicle",
	"vehicle": "other-vehicle",
}

// CategoryClassifier assigns vehicle type, categories and manufacturer from the item description
type CategoryClassifier struct {
	categories []CategoryEntry
	brands     []BrandEntry
}

// NewCategoryClassifier creates a classifier over the given tables.
// Category keywords are compared uppercased, so they are normalized here once.
func NewCategoryClassifier(categories []CategoryEntry, brands []BrandEntry) *CategoryClassifier {
	normalized := make([]CategoryEntry, len(categories))
	for i, c := range categories {
		c.VehicleType = strings.ToUpper(c.VehicleType)
		normalized[i] = c
	}
	lowered := make([]BrandEntry, len(brands))
	for i, b := range brands {
		lowered[i] = BrandEntry{Keyword: strings.ToLower(b.Keyword), Manufacturer: b.Manufacturer}
	}
	return &CategoryClassifier{categories: normalized, brands: lowered}
}

// Classify returns the vehicle columns for a listing. Only vehicle listings are
// classified; other listings get nil. midCategory is the category the listing
// arrived with and seeds the mid category before the table is consulted.
func (c *CategoryClassifier) Classify(mainCategory, midCategory, title string) *models.VehicleInfo {
	if mainCategory != models.CategoryVehicle {
		return nil
	}

	info := &models.VehicleInfo{MidCategory: midCategory}

	upper := strings.ToUpper(title)
	for _, entry := range c.categories {
		if entry.VehicleType == "" || !strings.Contains(upper, entry.VehicleType) {
			continue
		}
		info.VehicleType = entry.VehicleType
		info.SubCategory = entry.SubCategory
		info.MidCategory = entry.MidCategory
		info.Manufacturer = entry.Manufacturer
		break
	}

	if alias, ok := midCategoryAliases[info.MidCategory]; ok {
		info.MidCategory = alias
	}
	if info.SubCategory == "" {
		info.SubCategory = info.MidCategory
	}

	if info.Manufacturer == "" {
		lower := strings.ToLower(title)
		for _, brand := range c.brands {
			if strings.Contains(lower, brand.Keyword) {
				info.Manufacturer = brand.Manufacturer
				break
			}
		}
	}

	fillMissing(&info.VehicleType)
	fillMissing(&info.SubCategory)
	fillMissing(&info.MidCategory)
	fillMissing(&info.Manufacturer)

	return info
}

func fillMissing(field *string) {
	if strings.TrimSpace(*field) == "" {
		*field = models.Missing
	}
}
