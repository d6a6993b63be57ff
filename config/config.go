package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Directory scanned for candidate source files
	DataDir string `env:"DATA_DIR" envDefault:"data"`

	// Path to the SQLite market database
	DBPath string `env:"DB_PATH" envDefault:"data/market_data.db"`

	// HTTP port for the statistics query API
	Port string `env:"PORT" envDefault:"5250"`

	// Aggregation configuration
	Stats struct {
		// Trailing window in days for statistics recomputation
		WindowDays int `env:"STATS_WINDOW_DAYS" envDefault:"730"`

		// Tolerance band used in area bucket labels, e.g. "84±2"
		BucketTolerance int `env:"STATS_BUCKET_TOLERANCE" envDefault:"2"`
	}

	// Ingestion configuration
	Ingest struct {
		// Buffer size of the parsed-file queue
		QueueSize int `env:"INGEST_QUEUE_SIZE" envDefault:"16"`

		// Maximum number of retries for a failed file commit
		MaxRetries int `env:"INGEST_MAX_RETRIES" envDefault:"3"`

		// Delay between commit retries in seconds
		RetryDelay int `env:"INGEST_RETRY_DELAY" envDefault:"5"`

		// Hours between scheduled ingestion runs
		IntervalHours int `env:"INGEST_INTERVAL_HOURS" envDefault:"6"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
