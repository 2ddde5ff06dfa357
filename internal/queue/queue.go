package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"bidforecast/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Handler processes one batch of listings
type Handler func(ctx context.Context, batch []models.ClassifiedListing) error

// ListingQueue is an in-memory queue of classified listing batches
type ListingQueue struct {
	items    chan []models.ClassifiedListing
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	senders  sync.WaitGroup
	workers  sync.WaitGroup
	logger   *logrus.Logger
	handlers []Handler
}

// NewListingQueue creates a new listing queue with the specified buffer size
func NewListingQueue(bufferSize int, logger *logrus.Logger) *ListingQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &ListingQueue{
		items:    make(chan []models.ClassifiedListing, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]Handler, 0),
	}
}

// Push adds a batch without blocking
func (q *ListingQueue) Push(batch []models.ClassifiedListing) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// PushWait adds a batch, waiting for room until ctx is done or the queue is closed
func (q *ListingQueue) PushWait(ctx context.Context, batch []models.ClassifiedListing) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	// Close waits for registered senders before closing items, so the send
	// below never hits a closed channel and never blocks while holding mu.
	q.senders.Add(1)
	q.mu.RUnlock()
	defer q.senders.Done()

	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *ListingQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start launches workers that consume batches until the queue is closed and drained
func (q *ListingQueue) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.workers.Add(1)
		go q.process(ctx)
	}
}

func (q *ListingQueue) process(ctx context.Context) {
	defer q.workers.Done()
	for batch := range q.items {
		q.processBatch(ctx, batch)
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *ListingQueue) processBatch(ctx context.Context, batch []models.ClassifiedListing) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, batch); err != nil {
			q.logger.WithError(err).WithField("batch_size", len(batch)).Error("Handler failed to process batch")
		}
	}
}

// Close stops accepting batches; queued batches are still handed to the workers.
// Callers blocked in PushWait return ErrQueueClosed.
func (q *ListingQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.senders.Wait()
	close(q.items)
	return nil
}

// Wait blocks until every worker has exited
func (q *ListingQueue) Wait() {
	q.workers.Wait()
}

// Len returns the current number of batches in the queue
func (q *ListingQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *ListingQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
