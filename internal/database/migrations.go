package database

import "fmt"

func (d *Database) RunMigrations() error {
	// Building master table
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS complex_master (
			complex_id TEXT PRIMARY KEY,
			complex_name TEXT NOT NULL,
			dong TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create complex_master table: %v", err)
	}

	// Append-only transaction store
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			complex_id TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			area_sqm REAL NOT NULL,
			floor INTEGER,
			price_won INTEGER NOT NULL,
			FOREIGN KEY (complex_id) REFERENCES complex_master(complex_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create transactions table: %v", err)
	}

	// Statistics cache, replaced wholesale on every aggregation run
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS rt_stats (
			complex_id TEXT NOT NULL,
			area_bucket TEXT NOT NULL,
			window_days INTEGER NOT NULL,
			median_won INTEGER NOT NULL,
			count INTEGER NOT NULL,
			iqr_won INTEGER NOT NULL,
			last_updated TEXT NOT NULL,
			PRIMARY KEY (complex_id, area_bucket, window_days),
			FOREIGN KEY (complex_id) REFERENCES complex_master(complex_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create rt_stats table: %v", err)
	}

	// Content ledger
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS ingested_files (
			sha256 TEXT PRIMARY KEY,
			file_path TEXT,
			ingested_at TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create ingested_files table: %v", err)
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_transactions_trade_date
		ON transactions(trade_date);
	`)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_complex_master_name
		ON complex_master(complex_name);
	`)
	if err != nil {
		return err
	}

	return nil
}
