package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// ObjectQueue is an in-memory queue for batches of observed real-estate
// objects arriving from the intake API.
type ObjectQueue struct {
	items    chan []*models.RealEstateObject
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func([]*models.RealEstateObject) error
}

// NewObjectQueue creates a new object queue with the specified buffer size
func NewObjectQueue(bufferSize int, logger *logrus.Logger) *ObjectQueue {
	return &ObjectQueue{
		items:    make(chan []*models.RealEstateObject, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]*models.RealEstateObject) error, 0),
	}
}

// Push adds a batch of objects to the queue
func (q *ObjectQueue) Push(objects []*models.RealEstateObject) error {
	// The lock is held across the send so Close cannot close the channel
	// between the closed check and the send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- objects:
		q.logger.WithField("batch_size", len(objects)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *ObjectQueue) Subscribe(handler func([]*models.RealEstateObject) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *ObjectQueue) Start() {
	go q.process()
}

// process handles the queue processing loop
func (q *ObjectQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.processBatch(batch)
		}
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *ObjectQueue) processBatch(batch []*models.RealEstateObject) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops the queue and prevents new items from being added
func (q *ObjectQueue) Close() error {
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

// Len returns the current number of batches in the queue
func (q *ObjectQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *ObjectQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
