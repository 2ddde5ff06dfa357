package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bidforecast/server/config"
	"bidforecast/server/internal/classifier"
	"bidforecast/server/internal/models"
	"bidforecast/server/internal/normalizer"
	"bidforecast/server/internal/processor"
	"bidforecast/server/internal/queue"
)

// Result summarizes one ingestion run
type Result struct {
	RunID    string
	Read     int
	Accepted int
	Invalid  int
	Stats    processor.Stats
	Duration time.Duration
}

// Ingester loads a listing export into the history store
type Ingester struct {
	classifier *classifier.Classifier
	merger     processor.Merger
	config     *config.Config
	logger     *logrus.Logger
}

func NewIngester(cls *classifier.Classifier, merger processor.Merger, cfg *config.Config, logger *logrus.Logger) *Ingester {
	if logger == nil {
		logger = logrus.New()
	}
	return &Ingester{classifier: cls, merger: merger, config: cfg, logger: logger}
}

// Run reads, normalizes and classifies the export, then merges it oldest first
// through the batch processor. Invalid rows are counted and skipped.
func (i *Ingester) Run(ctx context.Context, r io.Reader) (Result, error) {
	start := time.Now()
	result := Result{RunID: uuid.NewString()}
	log := i.logger.WithField("run_id", result.RunID)

	raws, err := ReadListings(r)
	if err != nil {
		return result, fmt.Errorf("failed to read listings: %w", err)
	}
	result.Read = len(raws)

	listings := make([]models.Listing, 0, len(raws))
	for n, raw := range raws {
		listing, err := normalizer.Normalize(raw)
		if err != nil {
			result.Invalid++
			log.WithError(err).WithFields(logrus.Fields{"row": n + 2, "listing_id": raw.ID}).Debug("Dropped invalid row")
			continue
		}
		listings = append(listings, listing)
	}
	result.Accepted = len(listings)
	normalizer.SortByCloseAt(listings)

	classified := make([]models.ClassifiedListing, len(listings))
	for n, listing := range listings {
		classified[n] = i.classifier.Classify(listing)
	}

	batches := processor.PackBatches(classified, i.config.BatchProcessing.MaxBatchSize)
	log.WithFields(logrus.Fields{
		"read":     result.Read,
		"accepted": result.Accepted,
		"invalid":  result.Invalid,
		"batches":  len(batches),
	}).Info("Starting ingestion")

	q := queue.NewListingQueue(i.config.BatchProcessing.QueueSize, i.logger)
	p := processor.NewBatchProcessor(i.merger, q, i.config, i.logger)
	p.Start()

	for _, batch := range batches {
		if err := q.PushWait(ctx, batch); err != nil {
			p.Abort()
			result.Stats = p.Stats()
			result.Duration = time.Since(start)
			return result, fmt.Errorf("ingestion interrupted: %w", err)
		}
	}
	p.Stop()

	result.Stats = p.Stats()
	result.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"merged":      result.Stats.Merged,
		"rejected":    result.Stats.Rejected,
		"failed":      result.Stats.Failed,
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Ingestion finished")

	if result.Stats.Failed > 0 {
		return result, fmt.Errorf("%d listings could not be merged", result.Stats.Failed)
	}
	return result, nil
}
