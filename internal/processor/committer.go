package processor

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"molit/server/config"
	"molit/server/internal/database"
	"molit/server/internal/models"
	"molit/server/internal/queue"
)

// Committer drains the parsed-file queue and commits each file to the
// store as one transaction: buildings, transaction rows and the ledger
// entry land together or not at all. A single committer serializes all
// store writes for a run.
type Committer struct {
	db       *database.Database
	logger   *logrus.Logger
	config   *config.Config
	queue    *queue.FileQueue
	onResult func(models.FileResult)
}

// NewCommitter creates a new committer instance
func NewCommitter(db *database.Database, q *queue.FileQueue, cfg *config.Config, logger *logrus.Logger) *Committer {
	return &Committer{
		db:     db,
		queue:  q,
		config: cfg,
		logger: logger,
	}
}

// OnResult registers the callback invoked with each file's commit outcome.
func (c *Committer) OnResult(fn func(models.FileResult)) {
	c.onResult = fn
}

// Start subscribes to the queue and begins committing parsed files
func (c *Committer) Start() {
	c.queue.Subscribe(c.handle)
	c.queue.Start()
}

// Stop closes the queue; no further files will be committed.
func (c *Committer) Stop() {
	c.queue.Close()
}

func (c *Committer) handle(parsed *models.ParsedFile) error {
	err := c.commitFile(parsed)

	if c.onResult != nil {
		c.onResult(models.FileResult{
			Path:        parsed.Path,
			Hash:        parsed.Hash,
			Rows:        len(parsed.Transactions),
			SkippedRows: parsed.SkippedRows,
			Err:         err,
		})
	}
	return err
}

// commitFile handles a single parsed file with transaction and retry logic
func (c *Committer) commitFile(parsed *models.ParsedFile) error {
	var err error
	for attempt := 0; attempt <= c.config.Ingest.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Infof("Retrying file commit, attempt %d of %d", attempt, c.config.Ingest.MaxRetries)
			time.Sleep(time.Duration(c.config.Ingest.RetryDelay) * time.Second)
		}

		err = c.db.ORM().Transaction(func(tx *gorm.DB) error {
			if err := database.CommitFile(tx, parsed); err != nil {
				return fmt.Errorf("failed to commit parsed file: %w", err)
			}
			return nil
		})

		if err == nil {
			c.logger.WithFields(logrus.Fields{
				"file": parsed.Path,
				"rows": len(parsed.Transactions),
			}).Info("Successfully committed file")
			return nil
		}

		c.logger.Errorf("File commit failed: %v", err)
	}

	return fmt.Errorf("failed to commit file after %d attempts: %w", c.config.Ingest.MaxRetries+1, err)
}
