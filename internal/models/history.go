package models

import (
	"math"
	"time"
)

// HistoryEntry is the persisted bid history of one listing, one price slot per round
type HistoryEntry struct {
	ListingID    string     `json:"listing_id" gorm:"primaryKey;size:64"`
	MainCategory string     `json:"main_category" gorm:"size:16"`
	Round1Price  *float64   `json:"round1_price" gorm:"column:round1_price"`
	Round2Price  *float64   `json:"round2_price" gorm:"column:round2_price"`
	Round3Price  *float64   `json:"round3_price" gorm:"column:round3_price"`
	Round4Price  *float64   `json:"round4_price" gorm:"column:round4_price"`
	Round5Price  *float64   `json:"round5_price" gorm:"column:round5_price"`
	FirstSeenAt  *time.Time `json:"first_seen_at"`
	// LastCurrentRound is the failure count reported by the sighting that last wrote this entry
	LastCurrentRound *int      `json:"last_current_round,omitempty" gorm:"column:last_current_round"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName keeps the table name stable regardless of gorm naming strategy
func (HistoryEntry) TableName() string {
	return "listing_history"
}

// Prices returns the round slots as an array indexed from round 1 at position 0.
// Invalid stored values come back as nil.
func (h HistoryEntry) Prices() [MaxRound]*float64 {
	return [MaxRound]*float64{
		CoercePrice(h.Round1Price),
		CoercePrice(h.Round2Price),
		CoercePrice(h.Round3Price),
		CoercePrice(h.Round4Price),
		CoercePrice(h.Round5Price),
	}
}

// SetPrices replaces all five round slots
func (h *HistoryEntry) SetPrices(prices [MaxRound]*float64) {
	h.Round1Price = prices[0]
	h.Round2Price = prices[1]
	h.Round3Price = prices[2]
	h.Round4Price = prices[3]
	h.Round5Price = prices[4]
}

// CoercePrice returns nil for values that cannot be a bid price
func CoercePrice(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil
	}
	p := *v
	return &p
}

// Float returns a pointer to a copy of v
func Float(v float64) *float64 {
	return &v
}
