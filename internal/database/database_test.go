package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidforecast/server/internal/history"
	"bidforecast/server/internal/models"
)

func setupTestDB(t *testing.T) *Database {
	db, err := NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func appendPrice(price float64) history.UpdateFunc {
	return func(current *models.HistoryEntry) (*models.HistoryEntry, error) {
		entry := models.HistoryEntry{ListingID: "L-1", MainCategory: models.CategoryOther}
		if current != nil {
			entry = *current
		}
		prices := entry.Prices()
		prices[history.FirstOpenRound(prices)-1] = models.Float(price)
		entry.SetPrices(prices)
		return &entry, nil
	}
}

func TestDatabase_GetMissing(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDatabase_UpdateCreatesAndAppends(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created, err := db.Update(ctx, "L-1", appendPrice(1000))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, *created.Round1Price)

	_, err = db.Update(ctx, "L-1", appendPrice(900))
	require.NoError(t, err)

	stored, err := db.Get(ctx, "L-1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, *stored.Round1Price)
	assert.Equal(t, 900.0, *stored.Round2Price)
	assert.Nil(t, stored.Round3Price)
	assert.False(t, stored.CreatedAt.IsZero())

	count, err := db.CountHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDatabase_UpdateNoWrite(t *testing.T) {
	db := setupTestDB(t)

	result, err := db.Update(context.Background(), "L-1", func(current *models.HistoryEntry) (*models.HistoryEntry, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, result)

	_, err = db.Get(context.Background(), "L-1")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDatabase_UpdateFuncErrorPassesThrough(t *testing.T) {
	db := setupTestDB(t)
	conflict := models.NewError(models.KindRoundConflict, "conflict", nil)

	_, err := db.Update(context.Background(), "L-1", func(current *models.HistoryEntry) (*models.HistoryEntry, error) {
		return nil, conflict
	})
	assert.Equal(t, models.KindRoundConflict, models.KindOf(err))
}

func TestDatabase_ClosedIsUnavailable(t *testing.T) {
	db, err := NewTestDB()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.Get(context.Background(), "L-1")
	assert.Equal(t, models.KindStoreUnavailable, models.KindOf(err))
}

func TestDatabase_WithMerger(t *testing.T) {
	db := setupTestDB(t)
	merger := history.NewMerger(db, time.Second, false, nil)
	ctx := context.Background()

	listing := models.ClassifiedListing{
		Listing: models.Listing{ID: "L-9", MainCategory: models.CategoryOther, MidCategory: "가전", MinBidPrice: 500000},
	}
	row, err := merger.Merge(ctx, listing)
	require.NoError(t, err)
	assert.Equal(t, 1, row.Round)

	listing.MinBidPrice = 450000
	listing.CurrentRound = 1
	row, err = merger.Merge(ctx, listing)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Round)
	assert.Equal(t, 500000.0, row.FirstRoundPrice())

	entry, err := merger.Lookup(ctx, "L-9")
	require.NoError(t, err)
	assert.Equal(t, 450000.0, *entry.Round2Price)
	assert.NotNil(t, entry.FirstSeenAt)
}

func TestDatabase_RepeatedSightingKeepsHistory(t *testing.T) {
	db := setupTestDB(t)
	merger := history.NewMerger(db, time.Second, false, nil)
	ctx := context.Background()

	listing := models.ClassifiedListing{
		Listing: models.Listing{ID: "L-3", MainCategory: models.CategoryOther, MinBidPrice: 5000000, CurrentRound: 2},
	}
	for i := 0; i < 2; i++ {
		row, err := merger.Merge(ctx, listing)
		require.NoError(t, err)
		assert.Equal(t, 1, row.Round, "sighting %d", i+1)
	}

	entry, err := db.Get(ctx, "L-3")
	require.NoError(t, err)
	assert.Equal(t, 5000000.0, *entry.Round1Price)
	assert.Nil(t, entry.Round3Price)
	require.NotNil(t, entry.LastCurrentRound)
	assert.Equal(t, 2, *entry.LastCurrentRound)
}
