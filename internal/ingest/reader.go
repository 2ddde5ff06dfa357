package ingest

import (
	"io"
	"strconv"
	"strings"

	"bidforecast/server/config"
	"bidforecast/server/internal/models"
)

// headerAliases maps the column names of the auction site's export to ours
var headerAliases = map[string]string{
	"일련번호":            "id",
	"물건관리번호":          "id",
	"카테고리":            "category",
	"물건정보":            "title",
	"물건명":             "title",
	"기관/담당부점":         "agency",
	"기관":              "agency",
	"개찰일시":            "end_date",
	"최저입찰가 (예정가격)(원)": "min_bid_price",
	"최저입찰가":           "min_bid_price",
	"유찰횟수":            "current_round",
}

// ReadListings parses a listing export. The category and min_bid_price
// columns are required; the rest may be absent.
func ReadListings(r io.Reader) ([]models.RawListing, error) {
	rows, err := config.ReadTableAliased(r, headerAliases, "category", "min_bid_price")
	if err != nil {
		return nil, err
	}

	listings := make([]models.RawListing, 0, len(rows))
	for _, row := range rows {
		raw := models.RawListing{
			ID:          row["id"],
			Category:    row["category"],
			Title:       row["title"],
			Agency:      row["agency"],
			EndDate:     row["end_date"],
			MinBidPrice: row["min_bid_price"],
		}
		if round, err := strconv.Atoi(strings.TrimSuffix(row["current_round"], "회")); err == nil {
			raw.CurrentRound = &round
		}
		listings = append(listings, raw)
	}
	return listings, nil
}
