package queue

import (
	"errors"
	"sync"

	"homefinder/server/internal/amenities"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// FeatureBatch is one ingestion unit: a set of raw features plus the source
// label used for amenity-type inference.
type FeatureBatch struct {
	SourceLabel string
	Features    []amenities.RawFeature
}

// FeatureQueue is an in-memory buffer between upload handlers and the
// ingestion workers.
type FeatureQueue struct {
	items    chan FeatureBatch
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(FeatureBatch) error
}

// NewFeatureQueue creates a feature queue with the specified buffer size.
func NewFeatureQueue(bufferSize int, logger *logrus.Logger) *FeatureQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &FeatureQueue{
		items:    make(chan FeatureBatch, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(FeatureBatch) error, 0),
	}
}

// Push adds a batch to the queue without blocking; a full queue is the
// caller's signal to shed load.
func (q *FeatureQueue) Push(batch FeatureBatch) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.items <- batch:
		q.logger.WithFields(logrus.Fields{
			"source":     batch.SourceLabel,
			"batch_size": len(batch.Features),
		}).Debug("Pushed feature batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each batch.
func (q *FeatureQueue) Subscribe(handler func(FeatureBatch) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue.
func (q *FeatureQueue) Start() {
	go q.process()
}

func (q *FeatureQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.processBatch(batch)
		}
	}
}

func (q *FeatureQueue) processBatch(batch FeatureBatch) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).WithField("source", batch.SourceLabel).
				Error("Handler failed to process feature batch")
		}
	}
}

// Close stops the queue and prevents new items from being added.
func (q *FeatureQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	// Only the done channel closes. The items channel stays open so a Push
	// racing this Close lands in the buffer instead of panicking; dispatchers
	// exit via done and anything still buffered is dropped.
	q.closed = true
	close(q.done)
	return nil
}

// Len returns the current number of batches in the queue.
func (q *FeatureQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed.
func (q *FeatureQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
