package stats

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"molit/server/config"
	"molit/server/internal/database"
	"molit/server/internal/models"
)

// BucketLabel converts an area to its grouping key, e.g. 84.3 with
// tolerance 2 becomes "84±2". Ties round to even, so 84.5 lands in the 84
// bucket and 85.5 in the 86 bucket.
func BucketLabel(areaSqm float64, tolerance int) string {
	return fmt.Sprintf("%d±%d", int(math.RoundToEven(areaSqm)), tolerance)
}

// Median returns the middle element of a sorted price list; on even counts
// the upper of the two middles.
func Median(sorted []int64) int64 {
	return sorted[len(sorted)/2]
}

// IQR returns the positional, non-interpolated interquartile range of a
// sorted price list, defined as 0 when the sample is smaller than 4.
func IQR(sorted []int64) int64 {
	n := len(sorted)
	if n < 4 {
		return 0
	}
	return sorted[n*3/4] - sorted[n/4]
}

// Aggregator recomputes the statistics cache from scratch over the
// trailing window. The recompute is a full replace per key, so re-running
// it after any ingestion is always safe.
type Aggregator struct {
	db     *database.Database
	config *config.Config
	logger *logrus.Logger
}

func NewAggregator(db *database.Database, cfg *config.Config, logger *logrus.Logger) *Aggregator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Aggregator{db: db, config: cfg, logger: logger}
}

type groupKey struct {
	buildingID string
	bucket     string
}

// Aggregate groups window transactions by (building, area bucket),
// computes median, count and IQR per group and replaces the cache rows.
// Returns the number of groups written.
func (a *Aggregator) Aggregate() (int, error) {
	txs, err := a.db.TransactionsInWindow(a.config.Stats.WindowDays)
	if err != nil {
		return 0, fmt.Errorf("failed to load window transactions: %w", err)
	}

	groups := make(map[groupKey][]int64)
	for _, t := range txs {
		key := groupKey{
			buildingID: t.BuildingID,
			bucket:     BucketLabel(t.AreaSqm, a.config.Stats.BucketTolerance),
		}
		groups[key] = append(groups[key], t.PriceWon)
	}

	today := time.Now().Format("2006-01-02")
	records := make([]models.StatisticsRecord, 0, len(groups))
	for key, prices := range groups {
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
		records = append(records, models.StatisticsRecord{
			BuildingID:  key.buildingID,
			AreaBucket:  key.bucket,
			WindowDays:  a.config.Stats.WindowDays,
			MedianWon:   Median(prices),
			Count:       len(prices),
			IQRWon:      IQR(prices),
			LastUpdated: today,
		})
	}

	if err := a.db.ReplaceStats(records); err != nil {
		return 0, fmt.Errorf("failed to replace stats cache: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"groups":       len(records),
		"transactions": len(txs),
		"window_days":  a.config.Stats.WindowDays,
	}).Info("Statistics cache rebuilt")

	return len(records), nil
}
