package processor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"bidforecast/server/config"
	"bidforecast/server/internal/models"
	"bidforecast/server/internal/queue"
)

// Merger records one listing sighting in the history store
type Merger interface {
	Merge(ctx context.Context, listing models.ClassifiedListing) (models.FeatureRow, error)
}

// Stats counts the outcome of every listing the processor has seen
type Stats struct {
	Merged   int64 `json:"merged"`
	Rejected int64 `json:"rejected"`
	Failed   int64 `json:"failed"`
}

// BatchProcessor merges queued listing batches into the history store
type BatchProcessor struct {
	merger     Merger
	logger     *logrus.Logger
	config     *config.Config
	queue      *queue.ListingQueue
	retryDelay time.Duration
	ctx        context.Context
	cancel     context.CancelFunc

	merged   atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(merger Merger, queue *queue.ListingQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		merger:     merger,
		queue:      queue,
		config:     config,
		logger:     logger,
		retryDelay: time.Duration(config.BatchProcessing.RetryDelay) * time.Second,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes to the queue and launches the configured number of workers
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.processBatch)
	p.queue.Start(p.ctx, p.config.BatchProcessing.ProcessorCount)
}

// Stop closes the queue, waits for queued batches to finish and releases the workers
func (p *BatchProcessor) Stop() {
	p.queue.Close()
	p.queue.Wait()
	p.cancel()
}

// Abort cancels in-flight work; queued batches fail fast
func (p *BatchProcessor) Abort() {
	p.cancel()
	p.Stop()
}

func (p *BatchProcessor) Stats() Stats {
	return Stats{
		Merged:   p.merged.Load(),
		Rejected: p.rejected.Load(),
		Failed:   p.failed.Load(),
	}
}

// processBatch merges the listings of a batch in order. Listings the store
// refuses (conflicting rounds, invalid records) are counted and skipped; store
// outages are retried.
func (p *BatchProcessor) processBatch(ctx context.Context, batch []models.ClassifiedListing) error {
	var failed int
	for _, listing := range batch {
		err := p.mergeWithRetry(ctx, listing)
		switch {
		case err == nil:
			p.merged.Add(1)
		case isRejection(err):
			p.rejected.Add(1)
			p.logger.WithError(err).WithField("listing_id", listing.ID).Warn("Skipped listing")
		default:
			p.failed.Add(1)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to merge %d of %d listings", failed, len(batch))
	}
	p.logger.Infof("Successfully processed batch of %d listings", len(batch))
	return nil
}

func (p *BatchProcessor) mergeWithRetry(ctx context.Context, listing models.ClassifiedListing) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.WithField("listing_id", listing.ID).
				Infof("Retrying merge, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			select {
			case <-time.After(p.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if _, err = p.merger.Merge(ctx, listing); err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		p.logger.WithError(err).WithField("listing_id", listing.ID).Error("Merge failed")
	}

	return fmt.Errorf("failed to merge listing %s after %d retries: %w", listing.ID, p.config.BatchProcessing.MaxRetries, err)
}

func isRejection(err error) bool {
	switch models.KindOf(err) {
	case models.KindRoundConflict, models.KindInvalidRecord:
		return true
	}
	return false
}

func isRetryable(err error) bool {
	return models.KindOf(err) == models.KindStoreUnavailable
}

// PackBatches splits listings into batches of at most size listings without
// separating sightings of the same listing, so every listing's rounds are
// merged by one worker in their original order. A listing with more sightings
// than size gets a batch of its own.
func PackBatches(listings []models.ClassifiedListing, size int) [][]models.ClassifiedListing {
	if size < 1 {
		size = 1
	}

	var order []string
	groups := make(map[string][]models.ClassifiedListing)
	for _, l := range listings {
		if _, ok := groups[l.ID]; !ok {
			order = append(order, l.ID)
		}
		groups[l.ID] = append(groups[l.ID], l)
	}

	var batches [][]models.ClassifiedListing
	var current []models.ClassifiedListing
	for _, id := range order {
		group := groups[id]
		if len(current) > 0 && len(current)+len(group) > size {
			batches = append(batches, current)
			current = nil
		}
		current = append(current, group...)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
