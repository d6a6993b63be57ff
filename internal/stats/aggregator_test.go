package stats

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molit/server/config"
	"molit/server/internal/database"
)

func TestBucketLabel(t *testing.T) {
	tests := []struct {
		name     string
		area     float64
		expected string
	}{
		{"Below base", 83.8, "84±2"},
		{"Exact base", 84.0, "84±2"},
		{"Above base", 84.9, "85±2"},
		{"Far outside tolerance", 59.9, "60±2"},
		{"Boundary ties round to even", 84.5, "84±2"},
		{"Boundary above even", 85.5, "86±2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BucketLabel(tt.area, 2))
		})
	}
}

func TestMedian(t *testing.T) {
	// Odd count: the middle element
	assert.Equal(t, int64(40), Median([]int64{10, 20, 30, 40, 50, 60, 70}))
	// Even count: the upper of the two middles
	assert.Equal(t, int64(3), Median([]int64{1, 2, 3, 4}))
	assert.Equal(t, int64(7), Median([]int64{7}))
}

func TestIQR(t *testing.T) {
	// n=7: q3 = s[5], q1 = s[1]
	assert.Equal(t, int64(40), IQR([]int64{10, 20, 30, 40, 50, 60, 70}))
	// Defined as 0 below 4 samples
	assert.Equal(t, int64(0), IQR([]int64{10, 20, 30}))
	// n=4: q3 = s[3], q1 = s[1]
	assert.Equal(t, int64(20), IQR([]int64{10, 20, 30, 40}))
}

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Stats.WindowDays = 730
	cfg.Stats.BucketTolerance = 2
	return cfg
}

func seedTransactions(t *testing.T, db *database.Database, buildingID string, tradeDate string, areas []float64, prices []int64) {
	t.Helper()
	_, err := db.GetDB().Exec(
		"INSERT OR IGNORE INTO complex_master (complex_id, complex_name, dong) VALUES (?, ?, ?)",
		buildingID, "은마아파트", "대치동",
	)
	require.NoError(t, err)

	for i, price := range prices {
		_, err := db.GetDB().Exec(
			"INSERT INTO transactions (complex_id, trade_date, area_sqm, floor, price_won) VALUES (?, ?, ?, ?, ?)",
			buildingID, tradeDate, areas[i%len(areas)], 0, price,
		)
		require.NoError(t, err)
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	db := newTestDatabase(t)
	cfg := testConfig()

	recent := time.Now().AddDate(0, -1, 0).Format("2006-01-02")
	prices := []int64{210000, 220000, 230000, 240000, 250000, 260000, 270000}
	seedTransactions(t, db, "CMPX_000001", recent, []float64{83.8, 84.0, 84.9}, prices)

	groups, err := NewAggregator(db, cfg, logrus.New()).Aggregate()
	require.NoError(t, err)

	// 83.8 and 84.0 share bucket 84; 84.9 rounds to 85
	assert.Equal(t, 2, groups)

	var median, iqr int64
	var count int
	err = db.GetDB().QueryRow(
		"SELECT median_won, count, iqr_won FROM rt_stats WHERE complex_id = ? AND area_bucket = ?",
		"CMPX_000001", "84±2",
	).Scan(&median, &count, &iqr)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestAggregator_WindowExcludesOldTrades(t *testing.T) {
	db := newTestDatabase(t)
	cfg := testConfig()

	old := time.Now().AddDate(-3, 0, 0).Format("2006-01-02")
	seedTransactions(t, db, "CMPX_000002", old, []float64{84.0}, []int64{100000, 110000, 120000})

	groups, err := NewAggregator(db, cfg, logrus.New()).Aggregate()
	require.NoError(t, err)
	assert.Equal(t, 0, groups)
}

func TestAggregator_ReplacesNotMerges(t *testing.T) {
	db := newTestDatabase(t)
	cfg := testConfig()
	agg := NewAggregator(db, cfg, logrus.New())

	recent := time.Now().AddDate(0, -1, 0).Format("2006-01-02")
	seedTransactions(t, db, "CMPX_000003", recent, []float64{84.0}, []int64{200000, 210000, 220000})

	_, err := agg.Aggregate()
	require.NoError(t, err)

	// A second run over the same data must leave exactly one row per key
	_, err = agg.Aggregate()
	require.NoError(t, err)

	var rows int
	err = db.GetDB().QueryRow(
		"SELECT COUNT(*) FROM rt_stats WHERE complex_id = ?", "CMPX_000003",
	).Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	var median int64
	err = db.GetDB().QueryRow(
		"SELECT median_won FROM rt_stats WHERE complex_id = ? AND area_bucket = ?",
		"CMPX_000003", "84±2",
	).Scan(&median)
	require.NoError(t, err)
	assert.Equal(t, int64(210000), median)
}

func TestMedianIQRHandComputed(t *testing.T) {
	db := newTestDatabase(t)
	cfg := testConfig()

	// 7 known values out of order; sorted: 31, 32, 33, 34, 35, 36, 37 (만원 x 10^4)
	prices := []int64{350000, 310000, 370000, 330000, 320000, 360000, 340000}
	recent := time.Now().AddDate(0, -2, 0).Format("2006-01-02")
	seedTransactions(t, db, "CMPX_000004", recent, []float64{84.0}, prices)

	_, err := NewAggregator(db, cfg, logrus.New()).Aggregate()
	require.NoError(t, err)

	var median, iqr int64
	var count int
	err = db.GetDB().QueryRow(
		"SELECT median_won, count, iqr_won FROM rt_stats WHERE complex_id = ?", "CMPX_000004",
	).Scan(&median, &count, &iqr)
	require.NoError(t, err)

	assert.Equal(t, int64(340000), median, "middle of 7 sorted values")
	assert.Equal(t, 7, count)
	assert.Equal(t, int64(360000-320000), iqr, fmt.Sprintf("s[5]-s[1] of %v", prices))
}
