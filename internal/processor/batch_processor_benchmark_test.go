package processor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"bidforecast/server/internal/history"
	"bidforecast/server/internal/models"
	"bidforecast/server/internal/queue"
)

func generateTestListings(count int) []models.ClassifiedListing {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	listings := make([]models.ClassifiedListing, count)
	for i := range listings {
		listings[i] = sighting(fmt.Sprintf("BENCH-%d", i), float64(500000+i*1000), 0, start.Add(time.Duration(i)*time.Minute))
	}
	return listings
}

func BenchmarkBatchProcessing(b *testing.B) {
	batchSizes := []int{10, 100, 500}
	listingCount := 2000

	for _, batchSize := range batchSizes {
		b.Run(fmt.Sprintf("BatchSize_%d", batchSize), func(b *testing.B) {
			logger := logrus.New()
			logger.SetLevel(logrus.WarnLevel)
			cfg := testConfig()
			cfg.BatchProcessing.ProcessorCount = 4
			listings := generateTestListings(listingCount)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				db := setupTestDB(b)
				merger := history.NewMerger(db, 5*time.Second, false, logger)
				q := queue.NewListingQueue(64, logger)
				processor := NewBatchProcessor(merger, q, cfg, logger)
				processor.Start()
				b.StartTimer()

				startTime := time.Now()
				for _, batch := range PackBatches(listings, batchSize) {
					require.NoError(b, q.PushWait(context.Background(), batch))
				}
				processor.Stop()

				b.ReportMetric(float64(listingCount)/time.Since(startTime).Seconds(), "listings/sec")
				require.Equal(b, int64(listingCount), processor.Stats().Merged)
			}
		})
	}
}
