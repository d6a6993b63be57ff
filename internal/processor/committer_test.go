package processor

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molit/server/config"
	"molit/server/internal/database"
	"molit/server/internal/models"
	"molit/server/internal/queue"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testCommitterConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Ingest.MaxRetries = 1
	cfg.Ingest.RetryDelay = 0
	return cfg
}

func openDatabase(t *testing.T, migrate bool) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	if migrate {
		require.NoError(t, db.RunMigrations())
	}
	return db
}

func sampleParsed() *models.ParsedFile {
	return &models.ParsedFile{
		Path: "a.csv",
		Hash: "hash-a",
		Buildings: []*models.Building{
			{ID: "CMPX_000001", Name: "은마아파트", Locality: "대치동"},
		},
		Transactions: []*models.Transaction{
			{BuildingID: "CMPX_000001", TradeDate: "2025-06-15", AreaSqm: 84.43, PriceWon: 240000},
		},
	}
}

func TestCommitter_HandleReportsOutcome(t *testing.T) {
	db := openDatabase(t, true)
	logger := testLogger()
	c := NewCommitter(db, queue.NewFileQueue(1, logger), testCommitterConfig(), logger)

	var got models.FileResult
	c.OnResult(func(res models.FileResult) { got = res })

	require.NoError(t, c.handle(sampleParsed()))
	assert.Equal(t, "a.csv", got.Path)
	assert.Equal(t, "hash-a", got.Hash)
	assert.Equal(t, 1, got.Rows)
	assert.NoError(t, got.Err)
}

func TestCommitter_ExhaustedRetriesReportAttempts(t *testing.T) {
	// No migrations, so every commit attempt fails
	db := openDatabase(t, false)
	logger := testLogger()
	c := NewCommitter(db, queue.NewFileQueue(1, logger), testCommitterConfig(), logger)

	err := c.commitFile(sampleParsed())
	require.Error(t, err)
	// MaxRetries=1 means two attempts in total
	assert.Contains(t, err.Error(), "after 2 attempts")
}
