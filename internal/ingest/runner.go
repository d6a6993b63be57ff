package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"molit/server/config"
	"molit/server/internal/database"
	"molit/server/internal/models"
	"molit/server/internal/normalize"
	"molit/server/internal/processor"
	"molit/server/internal/queue"
	"molit/server/internal/sniffer"
)

// Runner executes one batch ingestion pass over the data directory:
// discover candidate files, skip already-ingested content, parse and
// normalize the rest, and hand each parsed file to a single committer. A
// failure in one file never aborts the remaining files.
type Runner struct {
	db      *database.Database
	config  *config.Config
	logger  *logrus.Logger
	sniffer *sniffer.Sniffer
}

func NewRunner(db *database.Database, cfg *config.Config, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Runner{
		db:      db,
		config:  cfg,
		logger:  logger,
		sniffer: sniffer.NewSniffer(logger),
	}
}

// Run processes every candidate file in the configured data directory and
// returns the batch summary. Only one run may be active against a store at
// a time; the scheduler serializes calls.
func (r *Runner) Run() (*models.RunSummary, error) {
	files, err := DiscoverFiles(r.config.DataDir)
	if err != nil {
		return nil, err
	}

	summary := &models.RunSummary{Errors: []string{}}
	var mu sync.Mutex
	var wg sync.WaitGroup

	q := queue.NewFileQueue(r.config.Ingest.QueueSize, r.logger)
	committer := processor.NewCommitter(r.db, q, r.config, r.logger)
	committed := make(map[string]bool)
	committer.OnResult(func(res models.FileResult) {
		defer wg.Done()
		mu.Lock()
		defer mu.Unlock()
		if res.Err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", res.Path, res.Err))
			return
		}
		committed[res.Hash] = true
		summary.Ingested++
		summary.TotalRows += res.Rows
		summary.SkippedRows += res.SkippedRows
	})
	committer.Start()
	defer committer.Stop()

	// Ledger entries only land at commit time, so byte-identical files
	// within the same run are deduped in memory. Whether a duplicate counts
	// as skipped depends on the first copy's commit outcome, which is not
	// known yet, so duplicates are held back and settled after the drain.
	seen := make(map[string]bool)
	duplicates := make(map[string][]string)
	now := time.Now()

	for _, path := range files {
		name := filepath.Base(path)

		hash, err := HashFile(path)
		if err != nil {
			r.logger.WithError(err).WithField("file", name).Error("Failed to hash file")
			mu.Lock()
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", name, err))
			mu.Unlock()
			continue
		}

		if seen[hash] {
			duplicates[hash] = append(duplicates[hash], name)
			continue
		}

		ingested, err := r.db.HasIngested(hash)
		if err != nil {
			mu.Lock()
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", name, err))
			mu.Unlock()
			continue
		}
		if ingested {
			r.logger.WithField("file", name).Debug("Skipping already-ingested content")
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			continue
		}

		parsed, err := r.parseFile(path, hash, now)
		if err != nil {
			r.logger.WithError(err).WithField("file", name).Warn("Failed to parse file")
			mu.Lock()
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", name, err))
			mu.Unlock()
			continue
		}

		seen[hash] = true
		wg.Add(1)
		for {
			err = q.Push(parsed)
			if err != queue.ErrQueueFull {
				break
			}
			time.Sleep(50 * time.Millisecond)
		}
		if err != nil {
			wg.Done()
			mu.Lock()
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", name, err))
			mu.Unlock()
		}
	}

	wg.Wait()

	for hash, names := range duplicates {
		for _, name := range names {
			if committed[hash] {
				summary.Skipped++
			} else {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: duplicate content was not committed", name))
			}
		}
	}

	r.logger.WithFields(logrus.Fields{
		"ingested":     summary.Ingested,
		"skipped":      summary.Skipped,
		"total_rows":   summary.TotalRows,
		"skipped_rows": summary.SkippedRows,
		"errors":       len(summary.Errors),
	}).Info("Ingestion run completed")

	return summary, nil
}

// parseFile sniffs the schema and normalizes every row. Rows that fail
// normalization are counted and skipped; the file keeps going.
func (r *Runner) parseFile(path, hash string, now time.Time) (*models.ParsedFile, error) {
	table, err := r.sniffer.Sniff(path)
	if err != nil {
		return nil, err
	}

	parsed := &models.ParsedFile{
		Path: filepath.Base(path),
		Hash: hash,
	}

	buildings := make(map[string]bool)
	for _, row := range table.Rows {
		b, tx, err := normalize.Row(table, row, now)
		if err != nil {
			parsed.SkippedRows++
			continue
		}
		if !buildings[b.ID] {
			buildings[b.ID] = true
			parsed.Buildings = append(parsed.Buildings, b)
		}
		parsed.Transactions = append(parsed.Transactions, tx)
	}

	return parsed, nil
}

// HashFile computes the SHA-256 of a file's raw bytes, the stable content
// identity used by the ledger.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %v", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %v", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
