package database

import (
	"database/sql"
	"fmt"
	"time"

	"molit/server/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Database struct {
	db  *sql.DB
	orm *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	// Concurrent readers during aggregation wait instead of failing
	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		return nil, err
	}

	// gorm shares the same connection pool; the committer uses it for
	// transactional file writes while raw SQL serves the read paths.
	orm, err := gorm.Open(&sqlite.Dialector{Conn: db}, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm handle: %w", err)
	}

	return &Database{db: db, orm: orm}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

// ORM exposes the gorm handle used by the file committer.
func (d *Database) ORM() *gorm.DB {
	return d.orm
}

// HasIngested reports whether a file with the given content hash has
// already been fully committed.
func (d *Database) HasIngested(hash string) (bool, error) {
	var exists bool
	err := d.db.QueryRow("SELECT EXISTS(SELECT 1 FROM ingested_files WHERE sha256 = ? LIMIT 1)", hash).Scan(&exists)
	return exists, err
}

// CommitFile writes one parsed file as a single atomic unit: buildings are
// upserted if absent, transaction rows are appended, and the ledger entry
// is inserted last. A crash can never leave a ledger entry without its
// rows, or rows without their ledger entry.
func CommitFile(tx *gorm.DB, parsed *models.ParsedFile) error {
	for _, b := range parsed.Buildings {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(b).Error; err != nil {
			return fmt.Errorf("failed to upsert building %s: %w", b.ID, err)
		}
	}

	if len(parsed.Transactions) > 0 {
		if err := tx.CreateInBatches(parsed.Transactions, 500).Error; err != nil {
			return fmt.Errorf("failed to append transactions: %w", err)
		}
	}

	entry := &models.IngestedFile{
		SHA256:     parsed.Hash,
		FilePath:   parsed.Path,
		IngestedAt: time.Now().Format("2006-01-02 15:04:05"),
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}

	return nil
}

// TransactionsInWindow returns all transactions whose trade date falls
// within the trailing window, for aggregation.
func (d *Database) TransactionsInWindow(windowDays int) ([]models.Transaction, error) {
	rows, err := d.db.Query(`
		SELECT id, complex_id, trade_date, area_sqm, COALESCE(floor, 0), price_won
		FROM transactions
		WHERE trade_date >= date('now', ?)
	`, fmt.Sprintf("-%d days", windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to query window transactions: %v", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.BuildingID, &t.TradeDate, &t.AreaSqm, &t.Floor, &t.PriceWon); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %v", err)
		}
		txs = append(txs, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %v", err)
	}
	return txs, nil
}

// ReplaceStats replaces the statistics cache rows for the given records.
// Each (complex_id, area_bucket, window_days) key is fully overwritten, so
// re-running aggregation is idempotent.
func (d *Database) ReplaceStats(records []models.StatisticsRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO rt_stats
		(complex_id, area_bucket, window_days, median_won, count, iqr_won, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err = stmt.Exec(r.BuildingID, r.AreaBucket, r.WindowDays, r.MedianWon, r.Count, r.IQRWon, r.LastUpdated)
		if err != nil {
			return fmt.Errorf("failed to insert stats record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindBuildingByName resolves a building by contains-match on its display
// name, tolerating naming variants across sources. Returns nil when no
// building matches.
func (d *Database) FindBuildingByName(name string) (*models.Building, error) {
	var b models.Building
	var locality sql.NullString

	err := d.db.QueryRow(`
		SELECT complex_id, complex_name, dong
		FROM complex_master
		WHERE complex_name LIKE ?
		LIMIT 1
	`, "%"+name+"%").Scan(&b.ID, &b.Name, &locality)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query building: %v", err)
	}

	if locality.Valid {
		b.Locality = locality.String
	}
	return &b, nil
}

// GetStats reads one statistics cache row. Returns nil when the cache has
// no entry for the key.
func (d *Database) GetStats(buildingID, areaBucket string, windowDays int) (*models.ComplexStats, error) {
	var median, iqr int64
	var count int

	err := d.db.QueryRow(`
		SELECT median_won, count, iqr_won FROM rt_stats
		WHERE complex_id = ? AND area_bucket = ? AND window_days = ?
	`, buildingID, areaBucket, windowDays).Scan(&median, &count, &iqr)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %v", err)
	}

	return &models.ComplexStats{
		Median: float64(median),
		Count:  count,
		IQR:    float64(iqr),
	}, nil
}

// GetMonthlyTrends aggregates mean price and trade count per calendar
// month across all transactions.
func (d *Database) GetMonthlyTrends() ([]models.MonthlyTrend, error) {
	rows, err := d.db.Query(`
		SELECT strftime('%Y-%m', trade_date) as month,
		       AVG(price_won) as mean,
		       COUNT(*) as count
		FROM transactions
		GROUP BY month
		ORDER BY month ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trends: %v", err)
	}
	defer rows.Close()

	var trends []models.MonthlyTrend
	for rows.Next() {
		var t models.MonthlyTrend
		if err := rows.Scan(&t.Month, &t.MeanWon, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan trend: %v", err)
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

// GetRecentTrades returns the most recent transactions joined with their
// building names.
func (d *Database) GetRecentTrades(limit int) ([]models.RecentTrade, error) {
	rows, err := d.db.Query(`
		SELECT c.complex_name, COALESCE(c.dong, ''), t.trade_date, t.area_sqm,
		       COALESCE(t.floor, 0), t.price_won
		FROM transactions t
		JOIN complex_master c ON c.complex_id = t.complex_id
		ORDER BY t.trade_date DESC, t.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent trades: %v", err)
	}
	defer rows.Close()

	var trades []models.RecentTrade
	for rows.Next() {
		var tr models.RecentTrade
		if err := rows.Scan(&tr.ComplexName, &tr.Locality, &tr.TradeDate, &tr.AreaSqm, &tr.Floor, &tr.PriceWon); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %v", err)
		}
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}
