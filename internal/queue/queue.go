package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"molit/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// FileQueue is an in-memory queue of parsed source files awaiting commit.
// It decouples parsing from the single committer goroutine that serializes
// store writes.
type FileQueue struct {
	items    chan *models.ParsedFile
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(*models.ParsedFile) error
}

// NewFileQueue creates a new file queue with the specified buffer size
func NewFileQueue(bufferSize int, logger *logrus.Logger) *FileQueue {
	return &FileQueue{
		items:    make(chan *models.ParsedFile, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(*models.ParsedFile) error, 0),
	}
}

// Push adds a parsed file to the queue
func (q *FileQueue) Push(parsed *models.ParsedFile) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- parsed:
		q.logger.WithFields(logrus.Fields{
			"file": parsed.Path,
			"rows": len(parsed.Transactions),
		}).Debug("Pushed parsed file to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each parsed file
func (q *FileQueue) Subscribe(handler func(*models.ParsedFile) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *FileQueue) Start() {
	go q.process()
}

// process handles the queue processing loop
func (q *FileQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case parsed, ok := <-q.items:
			// Close shuts the items channel; a receive on the closed
			// channel must not reach the handlers.
			if !ok {
				return
			}
			q.dispatch(parsed)
		}
	}
}

// dispatch sends the parsed file to all subscribed handlers
func (q *FileQueue) dispatch(parsed *models.ParsedFile) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(parsed); err != nil {
			q.logger.WithError(err).WithField("file", parsed.Path).Error("Handler failed to process file")
		}
	}
}

// Close stops the queue and prevents new items from being added
func (q *FileQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	close(q.items)
	return nil
}

// Len returns the current number of parsed files in the queue
func (q *FileQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *FileQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
