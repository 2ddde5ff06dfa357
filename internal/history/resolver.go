package history

import (
	"fmt"
	"math"
	"time"

	"bidforecast/server/internal/models"
)

// Resolution is the outcome of placing an incoming price into a listing's history
type Resolution struct {
	Round       int
	Prices      [models.MaxRound]*float64
	FirstSeenAt *time.Time
	// CurrentRound is the failure count of the sighting being resolved
	CurrentRound int

	// New is set when no history existed for the listing
	New bool
	// Changed is set when the stored history has to be written
	Changed bool
}

// FirstOpenRound returns the first round without a price, or MaxRound when every slot is filled
func FirstOpenRound(prices [models.MaxRound]*float64) int {
	for i, p := range prices {
		if p == nil {
			return i + 1
		}
	}
	return models.MaxRound
}

// latestFilledRound returns the highest contiguous round holding a price, 0 when none
func latestFilledRound(prices [models.MaxRound]*float64) int {
	open := FirstOpenRound(prices)
	if prices[open-1] != nil {
		return open
	}
	return open - 1
}

// highestFilledRound returns the highest round holding a price, 0 when none
func highestFilledRound(prices [models.MaxRound]*float64) int {
	for r := models.MaxRound; r > 0; r-- {
		if prices[r-1] != nil {
			return r
		}
	}
	return 0
}

// Resolve decides which round an incoming listing belongs to and returns the
// merged price slots. existing is nil for a first sighting.
//
// A request repeating the latest recorded round at the same price resolves to
// that round and leaves the history untouched. So does a request carrying the
// same price and current round as the sighting that last wrote the history.
// A request landing below a round that already holds a price fails with a
// RoundConflict error.
func Resolve(existing *models.HistoryEntry, listing models.Listing, now time.Time) (Resolution, error) {
	price := listing.MinBidPrice

	if existing == nil {
		firstSeen := now
		if listing.CloseAt != nil {
			firstSeen = *listing.CloseAt
		}
		res := Resolution{Round: 1, FirstSeenAt: &firstSeen, New: true, Changed: true, CurrentRound: listing.CurrentRound}
		res.Prices[0] = models.Float(price)
		return res, nil
	}

	prices := existing.Prices()
	res := Resolution{Prices: prices, FirstSeenAt: existing.FirstSeenAt, CurrentRound: listing.CurrentRound}
	if res.FirstSeenAt == nil {
		firstSeen := now
		if listing.CloseAt != nil {
			firstSeen = *listing.CloseAt
		}
		res.FirstSeenAt = &firstSeen
		res.Changed = true
	}

	if last := highestFilledRound(prices); last > 0 && existing.LastCurrentRound != nil &&
		*existing.LastCurrentRound == listing.CurrentRound && samePrice(*prices[last-1], price) {
		res.Round = last
		return res, nil
	}

	requested := listing.CurrentRound + 1
	target := models.ClampRound(max(FirstOpenRound(prices), requested))

	latest := latestFilledRound(prices)
	if latest > 0 && requested <= latest && samePrice(*prices[latest-1], price) {
		res.Round = latest
		return res, nil
	}

	for r := target + 1; r <= models.MaxRound; r++ {
		if prices[r-1] != nil {
			return Resolution{}, models.NewError(models.KindRoundConflict,
				fmt.Sprintf("round %d already recorded for listing %s, refusing to write round %d", r, existing.ListingID, target), nil)
		}
	}

	if prices[target-1] == nil || !samePrice(*prices[target-1], price) {
		res.Prices[target-1] = models.Float(price)
		res.Changed = true
	}
	if existing.LastCurrentRound == nil || *existing.LastCurrentRound != listing.CurrentRound {
		res.Changed = true
	}
	res.Round = target
	return res, nil
}

func samePrice(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
