package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"molit/server/internal/ingest"
	"molit/server/internal/models"
	"molit/server/internal/stats"
)

// JobType represents the batch jobs the scheduler serializes
type JobType int

const (
	JobTypeIngest JobType = iota
	JobTypeAggregate
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypeIngest:
		return "ingest"
	case JobTypeAggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// Scheduler runs ingestion and aggregation as serialized batch jobs: the
// job mutex guarantees no two runs overlap each other or an aggregation,
// which is all the coordination this single-process pipeline needs.
type Scheduler struct {
	runner     *ingest.Runner
	aggregator *stats.Aggregator
	logger     *logrus.Logger
	stopChan   chan struct{}
	wg         sync.WaitGroup
	interval   time.Duration
	jobMutex   sync.Mutex // Ensures sequential job execution

	summaryMu   sync.RWMutex
	lastSummary *models.RunSummary
}

// NewScheduler creates a new scheduler
func NewScheduler(runner *ingest.Runner, aggregator *stats.Aggregator, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		runner:     runner,
		aggregator: aggregator,
		logger:     logger,
		stopChan:   make(chan struct{}),
		interval:   interval,
	}
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

// runScheduler handles the startup run and the periodic re-runs
func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	// Run the startup batch in a separate goroutine so Start returns fast
	go func() {
		s.logger.Info("Running startup batch jobs")
		if _, err := s.RunNow(); err != nil {
			s.logger.WithError(err).Error("Startup batch failed")
		}
		s.logger.Info("Startup batch jobs completed")
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.logger.WithField("job_type", JobTypeIngest.String()).Info("Starting scheduled batch jobs")
			if _, err := s.RunNow(); err != nil {
				s.logger.WithError(err).Error("Scheduled batch failed")
			}
			s.logger.Info("Completed scheduled batch jobs")
		}
	}
}

// RunNow executes one ingestion pass followed by a full statistics
// recompute, serialized against any other job. It returns the run summary.
func (s *Scheduler) RunNow() (*models.RunSummary, error) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	s.logger.WithField("job_type", JobTypeIngest.String()).Info("Starting job")
	summary, err := s.runner.Run()
	if err != nil {
		return nil, err
	}

	s.summaryMu.Lock()
	s.lastSummary = summary
	s.summaryMu.Unlock()

	s.logger.WithField("job_type", JobTypeAggregate.String()).Info("Starting job")
	if _, err := s.aggregator.Aggregate(); err != nil {
		return summary, err
	}

	return summary, nil
}

// LastSummary returns the summary of the most recent completed run, or nil
// when no run has completed yet.
func (s *Scheduler) LastSummary() *models.RunSummary {
	s.summaryMu.RLock()
	defer s.summaryMu.RUnlock()
	return s.lastSummary
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
