package history

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"bidforecast/server/internal/models"
)

// UpdateFunc receives the stored entry (nil when absent) and returns the entry to
// persist, or nil to leave the store untouched.
type UpdateFunc func(current *models.HistoryEntry) (*models.HistoryEntry, error)

// Store is the persisted per-listing history. Implementations report a missing
// entry with models.ErrNotFound and I/O failures with a StoreUnavailable error.
type Store interface {
	Get(ctx context.Context, listingID string) (*models.HistoryEntry, error)
	// Update runs fn and writes its result atomically with respect to other
	// Update calls for the same listing.
	Update(ctx context.Context, listingID string, fn UpdateFunc) (*models.HistoryEntry, error)
}

// Merger resolves the bidding round of a listing against its stored history
// and produces the feature row handed to the predictors.
type Merger struct {
	store   Store
	locks   *KeyedMutex
	timeout time.Duration
	degrade bool
	logger  *logrus.Logger
	now     func() time.Time
}

// NewMerger creates a merger. timeout bounds every store round trip; with
// degrade set, an unreachable store is treated as a first sighting.
func NewMerger(store Store, timeout time.Duration, degrade bool, logger *logrus.Logger) *Merger {
	if logger == nil {
		logger = logrus.New()
	}
	return &Merger{
		store:   store,
		locks:   NewKeyedMutex(),
		timeout: timeout,
		degrade: degrade,
		logger:  logger,
		now:     time.Now,
	}
}

// Merge records the listing's current price in its history and returns the feature row
func (m *Merger) Merge(ctx context.Context, listing models.ClassifiedListing) (models.FeatureRow, error) {
	if listing.ID == "" {
		res, err := Resolve(nil, listing.Listing, m.now())
		if err != nil {
			return models.FeatureRow{}, err
		}
		return BuildRow(listing, res), nil
	}

	unlock := m.locks.Lock(listing.ID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var res Resolution
	_, err := m.store.Update(ctx, listing.ID, func(current *models.HistoryEntry) (*models.HistoryEntry, error) {
		r, err := Resolve(current, listing.Listing, m.now())
		if err != nil {
			return nil, err
		}
		res = r
		if !r.Changed {
			return nil, nil
		}

		entry := models.HistoryEntry{ListingID: listing.ID, MainCategory: listing.MainCategory}
		if current != nil {
			entry = *current
		}
		entry.SetPrices(r.Prices)
		entry.FirstSeenAt = r.FirstSeenAt
		entry.LastCurrentRound = &r.CurrentRound
		return &entry, nil
	})

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = models.StoreUnavailable("history store timed out", err)
		}
		if models.KindOf(err) != models.KindStoreUnavailable || !m.degrade {
			return models.FeatureRow{}, err
		}

		m.logger.WithError(err).WithField("listing_id", listing.ID).
			Warn("History store unavailable, treating listing as first sighting")
		res, err = Resolve(nil, listing.Listing, m.now())
		if err != nil {
			return models.FeatureRow{}, err
		}
	}

	m.logger.WithFields(logrus.Fields{
		"listing_id": listing.ID,
		"round":      res.Round,
		"new":        res.New,
		"changed":    res.Changed,
	}).Debug("Merged listing history")

	return BuildRow(listing, res), nil
}

// Lookup returns the stored history of a listing
func (m *Merger) Lookup(ctx context.Context, listingID string) (*models.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	entry, err := m.store.Get(ctx, listingID)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, models.StoreUnavailable("history store timed out", err)
	}
	return entry, err
}

// BuildRow assembles the feature row; vehicle columns are only carried for vehicle listings
func BuildRow(listing models.ClassifiedListing, res Resolution) models.FeatureRow {
	row := models.FeatureRow{
		ID:                listing.ID,
		MainCategory:      listing.MainCategory,
		MidCategory:       listing.MidCategory,
		Title:             listing.Title,
		OrganizationGroup: listing.OrganizationGroup,
		CloseAt:           listing.CloseAt,
		FirstSeenAt:       res.FirstSeenAt,
		CurrentRound:      listing.CurrentRound,
		Round:             res.Round,
	}
	for i, p := range res.Prices {
		row.RoundPrices[i] = models.CoercePrice(p)
	}
	if listing.IsVehicle() && listing.Vehicle != nil {
		v := *listing.Vehicle
		row.Vehicle = &v
		row.MidCategory = v.MidCategory
	}
	return row
}
