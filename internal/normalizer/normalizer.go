package normalizer

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bidforecast/server/internal/models"
)

// CloseAtLayouts are the accepted bid close timestamp formats, tried in order
var CloseAtLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// vehicleLabels are raw main category labels routed to the vehicle models
var vehicleLabels = map[string]bool{
	"자동차":     true,
	"vehicle": true,
}

var undisclosedPrices = map[string]bool{
	"비공개":         true,
	"undisclosed": true,
}

// Normalize turns a raw listing into its canonical form or fails with an InvalidRecord error
func Normalize(raw models.RawListing) (models.Listing, error) {
	main, mid := SplitCategory(raw)
	if mid == "" {
		return models.Listing{}, models.InvalidRecord("missing sub category")
	}

	price, err := ParsePrice(raw.MinBidPrice)
	if err != nil {
		return models.Listing{}, err
	}

	listing := models.Listing{
		ID:           strings.TrimSpace(raw.ID),
		MainCategory: NormalizeMainCategory(main),
		MidCategory:  mid,
		Title:        raw.Title,
		Organization: raw.Agency,
		CloseAt:      ParseCloseAt(raw.EndDate),
		MinBidPrice:  price,
		CurrentRound: currentRound(raw),
	}
	return listing, nil
}

// SplitCategory returns the (main, sub) pair of a listing. A "[Main / Sub]" category
// string takes precedence over the separate fields.
func SplitCategory(raw models.RawListing) (string, string) {
	category := strings.TrimSpace(raw.Category)
	if category != "" {
		category = strings.TrimSpace(strings.Trim(category, "[]"))
		parts := strings.SplitN(category, " / ", 2)
		main := strings.TrimSpace(parts[0])
		if len(parts) < 2 {
			return main, ""
		}
		return main, strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(raw.MainCategory), strings.TrimSpace(raw.SubCategory)
}

// NormalizeMainCategory maps a raw main category label to vehicle or other
func NormalizeMainCategory(label string) string {
	if vehicleLabels[strings.ToLower(strings.TrimSpace(label))] {
		return models.CategoryVehicle
	}
	return models.CategoryOther
}

// ParsePrice parses a currency formatted minimum bid such as "12,340,000" or "12,340,000원"
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if undisclosedPrices[strings.ToLower(s)] {
		return 0, models.InvalidRecord("minimum bid price is undisclosed")
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "원"))
	if s == "" || s == "-" {
		return 0, models.InvalidRecord("missing minimum bid price")
	}

	if strings.ContainsAny(s, "eE") {
		return 0, models.InvalidRecord("minimum bid price is not numeric")
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, models.NewError(models.KindInvalidRecord, "minimum bid price is not numeric", err)
	}
	if d.IsNegative() {
		return 0, models.InvalidRecord("minimum bid price is negative")
	}
	price := d.InexactFloat64()
	if math.IsInf(price, 0) || math.IsNaN(price) {
		return 0, models.InvalidRecord("minimum bid price is not numeric")
	}
	return price, nil
}

// ParseCloseAt parses a bid close timestamp, returning nil when it cannot be read
func ParseCloseAt(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range CloseAtLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

// currentRound reads the explicit round column, falling back to the failure count
func currentRound(raw models.RawListing) int {
	if raw.CurrentRound != nil {
		if *raw.CurrentRound < 0 {
			return 0
		}
		return *raw.CurrentRound
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw.FailureCount), "회")))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SortByCloseAt orders a batch by close time ascending; listings without a
// timestamp keep their relative order at the end.
func SortByCloseAt(listings []models.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i].CloseAt, listings[j].CloseAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})
}
