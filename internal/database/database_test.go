package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"molit/server/internal/models"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	return db
}

func commit(t *testing.T, db *Database, parsed *models.ParsedFile) error {
	t.Helper()
	return db.ORM().Transaction(func(tx *gorm.DB) error {
		return CommitFile(tx, parsed)
	})
}

func countRows(t *testing.T, db *Database, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.GetDB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func sampleFile(hash string) *models.ParsedFile {
	return &models.ParsedFile{
		Path: "sample.csv",
		Hash: hash,
		Buildings: []*models.Building{
			{ID: "CMPX_000001", Name: "은마아파트", Locality: "대치동"},
		},
		Transactions: []*models.Transaction{
			{BuildingID: "CMPX_000001", TradeDate: "2025-06-15", AreaSqm: 84.43, Floor: 10, PriceWon: 240000},
			{BuildingID: "CMPX_000001", TradeDate: "2025-07-02", AreaSqm: 84.43, Floor: 3, PriceWon: 245000},
		},
	}
}

func TestHasIngested(t *testing.T) {
	db := newTestDatabase(t)

	ingested, err := db.HasIngested("deadbeef")
	require.NoError(t, err)
	assert.False(t, ingested)

	require.NoError(t, commit(t, db, sampleFile("deadbeef")))

	ingested, err = db.HasIngested("deadbeef")
	require.NoError(t, err)
	assert.True(t, ingested)
}

func TestCommitFile(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, commit(t, db, sampleFile("hash-a")))

	assert.Equal(t, 1, countRows(t, db, "complex_master"))
	assert.Equal(t, 2, countRows(t, db, "transactions"))
	assert.Equal(t, 1, countRows(t, db, "ingested_files"))

	// A second file referencing the same building must not duplicate it,
	// but its transaction rows append.
	second := sampleFile("hash-b")
	second.Transactions = second.Transactions[:1]
	require.NoError(t, commit(t, db, second))

	assert.Equal(t, 1, countRows(t, db, "complex_master"))
	assert.Equal(t, 3, countRows(t, db, "transactions"))
	assert.Equal(t, 2, countRows(t, db, "ingested_files"))
}

func TestCommitFile_RollsBackAsUnit(t *testing.T) {
	db := newTestDatabase(t)

	require.NoError(t, commit(t, db, sampleFile("hash-a")))

	// Re-committing the same content hash violates the ledger key; the
	// whole unit, transaction rows included, must roll back.
	err := commit(t, db, sampleFile("hash-a"))
	require.Error(t, err)

	assert.Equal(t, 2, countRows(t, db, "transactions"))
	assert.Equal(t, 1, countRows(t, db, "ingested_files"))
}

func TestReplaceStats(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, commit(t, db, sampleFile("hash-a")))
	now := time.Now().Format("2006-01-02 15:04:05")

	records := []models.StatisticsRecord{
		{BuildingID: "CMPX_000001", AreaBucket: "84±2", WindowDays: 730, MedianWon: 240000, Count: 5, IQRWon: 3000, LastUpdated: now},
	}
	require.NoError(t, db.ReplaceStats(records))

	stats, err := db.GetStats("CMPX_000001", "84±2", 730)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, float64(240000), stats.Median)
	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, float64(3000), stats.IQR)

	// Same key replaces rather than merges
	records[0].MedianWon = 250000
	records[0].Count = 7
	require.NoError(t, db.ReplaceStats(records))

	stats, err = db.GetStats("CMPX_000001", "84±2", 730)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, float64(250000), stats.Median)
	assert.Equal(t, 7, stats.Count)
	assert.Equal(t, 1, countRows(t, db, "rt_stats"))
}

func TestGetStats_MissingKey(t *testing.T) {
	db := newTestDatabase(t)

	stats, err := db.GetStats("CMPX_999999", "84±2", 730)
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestFindBuildingByName(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, commit(t, db, sampleFile("hash-a")))

	b, err := db.FindBuildingByName("은마")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "CMPX_000001", b.ID)
	assert.Equal(t, "은마아파트", b.Name)
	assert.Equal(t, "대치동", b.Locality)

	b, err = db.FindBuildingByName("없는단지")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestTransactionsInWindow(t *testing.T) {
	db := newTestDatabase(t)

	recent := sampleFile("hash-a")
	recent.Transactions[0].TradeDate = time.Now().AddDate(0, -1, 0).Format("2006-01-02")
	recent.Transactions[1].TradeDate = time.Now().AddDate(-3, 0, 0).Format("2006-01-02")
	require.NoError(t, commit(t, db, recent))

	txs, err := db.TransactionsInWindow(730)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, recent.Transactions[0].TradeDate, txs[0].TradeDate)
}

func TestGetMonthlyTrends(t *testing.T) {
	db := newTestDatabase(t)

	parsed := sampleFile("hash-a")
	parsed.Transactions = []*models.Transaction{
		{BuildingID: "CMPX_000001", TradeDate: "2025-06-10", AreaSqm: 84, PriceWon: 200000},
		{BuildingID: "CMPX_000001", TradeDate: "2025-06-20", AreaSqm: 84, PriceWon: 240000},
		{BuildingID: "CMPX_000001", TradeDate: "2025-07-01", AreaSqm: 84, PriceWon: 260000},
	}
	require.NoError(t, commit(t, db, parsed))

	trends, err := db.GetMonthlyTrends()
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, "2025-06", trends[0].Month)
	assert.Equal(t, float64(220000), trends[0].MeanWon)
	assert.Equal(t, 2, trends[0].Count)
	assert.Equal(t, "2025-07", trends[1].Month)
}

func TestGetRecentTrades(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, commit(t, db, sampleFile("hash-a")))

	trades, err := db.GetRecentTrades(10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	// Most recent first
	assert.Equal(t, "2025-07-02", trades[0].TradeDate)
	assert.Equal(t, "은마아파트", trades[0].ComplexName)
	assert.Equal(t, int64(245000), trades[0].PriceWon)

	trades, err = db.GetRecentTrades(1)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}
