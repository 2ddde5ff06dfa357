package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidforecast/server/internal/models"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func entryWith(prices ...float64) *models.HistoryEntry {
	var slots [models.MaxRound]*float64
	for i, p := range prices {
		if p >= 0 {
			slots[i] = models.Float(p)
		}
	}
	firstSeen := testNow.Add(-30 * 24 * time.Hour)
	e := &models.HistoryEntry{ListingID: "L-1", FirstSeenAt: &firstSeen}
	e.SetPrices(slots)
	return e
}

func seenAt(e *models.HistoryEntry, currentRound int) *models.HistoryEntry {
	e.LastCurrentRound = &currentRound
	return e
}

func pricesOf(res Resolution) []any {
	out := make([]any, len(res.Prices))
	for i, p := range res.Prices {
		if p == nil {
			out[i] = nil
		} else {
			out[i] = *p
		}
	}
	return out
}

func TestResolve_NewListing(t *testing.T) {
	closeAt := testNow.Add(48 * time.Hour)
	res, err := Resolve(nil, models.Listing{ID: "L-1", MinBidPrice: 10000000, CurrentRound: 3, CloseAt: &closeAt}, testNow)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Round)
	assert.True(t, res.New)
	assert.True(t, res.Changed)
	assert.Equal(t, []any{10000000.0, nil, nil, nil, nil}, pricesOf(res))
	require.NotNil(t, res.FirstSeenAt)
	assert.Equal(t, closeAt, *res.FirstSeenAt)
}

func TestResolve_NewListingWithoutCloseTime(t *testing.T) {
	res, err := Resolve(nil, models.Listing{MinBidPrice: 5}, testNow)
	require.NoError(t, err)
	assert.Equal(t, testNow, *res.FirstSeenAt)
}

func TestResolve_Rounds(t *testing.T) {
	tests := []struct {
		name           string
		existing       *models.HistoryEntry
		price          float64
		currentRound   int
		expectedRound  int
		expectedPrices []any
		expectChanged  bool
	}{
		{
			name:           "Offset rule picks the first open slot over current round plus one",
			existing:       entryWith(1000, 900),
			price:          800,
			currentRound:   1,
			expectedRound:  3,
			expectedPrices: []any{1000.0, 900.0, 800.0, nil, nil},
			expectChanged:  true,
		},
		{
			name:           "Current round ahead of history",
			existing:       entryWith(1000),
			price:          700,
			currentRound:   3,
			expectedRound:  4,
			expectedPrices: []any{1000.0, nil, nil, 700.0, nil},
			expectChanged:  true,
		},
		{
			name:           "Current round beyond five is clamped",
			existing:       entryWith(1000),
			price:          500,
			currentRound:   9,
			expectedRound:  5,
			expectedPrices: []any{1000.0, nil, nil, nil, 500.0},
			expectChanged:  true,
		},
		{
			name:           "Full history overwrites round five",
			existing:       entryWith(1000, 900, 800, 700, 600),
			price:          550,
			currentRound:   4,
			expectedRound:  5,
			expectedPrices: []any{1000.0, 900.0, 800.0, 700.0, 550.0},
			expectChanged:  true,
		},
		{
			name:           "Repeated sighting at the same price is a no-op",
			existing:       entryWith(1000, 900),
			price:          900,
			currentRound:   1,
			expectedRound:  2,
			expectedPrices: []any{1000.0, 900.0, nil, nil, nil},
			expectChanged:  false,
		},
		{
			name:           "Same price but a newer round advances",
			existing:       entryWith(1000, 900),
			price:          900,
			currentRound:   2,
			expectedRound:  3,
			expectedPrices: []any{1000.0, 900.0, 900.0, nil, nil},
			expectChanged:  true,
		},
		{
			name:           "Repeat of a late first sighting stays in round one",
			existing:       seenAt(entryWith(5000000), 2),
			price:          5000000,
			currentRound:   2,
			expectedRound:  1,
			expectedPrices: []any{5000000.0, nil, nil, nil, nil},
			expectChanged:  false,
		},
		{
			name:           "Repeat of an out of order round stays in that round",
			existing:       seenAt(entryWith(1000, -1, -1, 700), 3),
			price:          700,
			currentRound:   3,
			expectedRound:  4,
			expectedPrices: []any{1000.0, nil, nil, 700.0, nil},
			expectChanged:  false,
		},
		{
			name:           "Same price with a different current round advances",
			existing:       seenAt(entryWith(5000000), 2),
			price:          5000000,
			currentRound:   3,
			expectedRound:  4,
			expectedPrices: []any{5000000.0, nil, nil, 5000000.0, nil},
			expectChanged:  true,
		},
		{
			name:           "Repeat of the latest round is a no-op whatever the last current round",
			existing:       seenAt(entryWith(1000, 900), 0),
			price:          900,
			currentRound:   1,
			expectedRound:  2,
			expectedPrices: []any{1000.0, 900.0, nil, nil, nil},
			expectChanged:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(tt.existing, models.Listing{ID: "L-1", MinBidPrice: tt.price, CurrentRound: tt.currentRound}, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedRound, res.Round)
			assert.Equal(t, tt.expectedPrices, pricesOf(res))
			assert.Equal(t, tt.expectChanged, res.Changed)
			assert.False(t, res.New)
		})
	}
}

func TestResolve_RoundConflict(t *testing.T) {
	// Round 4 was recorded out of order; a request resolving to round 2 must not erase it.
	existing := entryWith(1000, -1, -1, 700)

	_, err := Resolve(existing, models.Listing{ID: "L-1", MinBidPrice: 900, CurrentRound: 1}, testNow)
	require.Error(t, err)
	assert.Equal(t, models.KindRoundConflict, models.KindOf(err))
}

func TestResolve_CoercesInvalidSlots(t *testing.T) {
	existing := entryWith(1000)
	bad := -3.0
	existing.Round2Price = &bad

	res, err := Resolve(existing, models.Listing{ID: "L-1", MinBidPrice: 800, CurrentRound: 0}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Round)
	assert.Equal(t, []any{1000.0, 800.0, nil, nil, nil}, pricesOf(res))
}

func TestResolve_BackfillsFirstSeen(t *testing.T) {
	existing := entryWith(1000)
	existing.FirstSeenAt = nil

	res, err := Resolve(existing, models.Listing{ID: "L-1", MinBidPrice: 1000}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Round)
	assert.True(t, res.Changed)
	assert.Equal(t, testNow, *res.FirstSeenAt)
}

func TestFirstOpenRound(t *testing.T) {
	assert.Equal(t, 1, FirstOpenRound(entryWith().Prices()))
	assert.Equal(t, 3, FirstOpenRound(entryWith(1, 2).Prices()))
	assert.Equal(t, 5, FirstOpenRound(entryWith(1, 2, 3, 4, 5).Prices()))
}
