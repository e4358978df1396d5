package storefront

import (
	"context"
	"errors"
	"sync"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("worker pool is shut down")
	ErrPoolFull   = errors.New("worker pool queue is full")
)

const queueSize = 1000

type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *stripe.Event) error
}

// WorkerPool processes events on a fixed number of goroutines.
type WorkerPool struct {
	ctx       context.Context
	tasks     chan *stripe.Event
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	logger    *zap.Logger
	processor EventProcessor
}

// NewWorkerPool starts size workers. ctx is handed to every ProcessEvent call.
func NewWorkerPool(ctx context.Context, size int, processor EventProcessor, logger *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	wp := &WorkerPool{
		ctx:       ctx,
		tasks:     make(chan *stripe.Event, queueSize),
		logger:    logger,
		processor: processor,
	}

	wp.wg.Add(size)
	for i := 0; i < size; i++ {
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for event := range wp.tasks {
		if err := wp.processor.ProcessEvent(wp.ctx, event); err != nil {
			wp.logger.Error("Failed to process event",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID))
		}
	}
}

// Submit queues event without blocking the caller.
func (wp *WorkerPool) Submit(event *stripe.Event) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.tasks <- event:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops accepting events and waits for queued ones to finish.
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.tasks)
	}
	wp.mu.Unlock()
	wp.wg.Wait()
}
