/*-------------------------------------------------------------------------
 *
 * queue.go
 *    In-process notification worker pool
 *
 * Jobs are buffered in a channel and delivered by a fixed number of
 * workers. Stop refuses new jobs, drains the buffer and waits.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/notifications/queue.go
 *
 *-------------------------------------------------------------------------
 */

package notifications

import (
	"context"
	"errors"
	"sync"

	"github.com/neurondb/NeuronApprovals/internal/logging"
	"github.com/neurondb/NeuronApprovals/internal/metrics"
)

/* ErrQueueClosed is returned by Enqueue after Stop */
var ErrQueueClosed = errors.New("notification queue closed")

const defaultQueueBuffer = 256

/* Job is one unit of deferred delivery */
type Job func(ctx context.Context) error

type Queue struct {
	name    string
	jobs    chan Job
	workers int
	logger  *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	/* done is closed first by Stop so a blocked Enqueue releases its read lock */
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewQueue(name string, workers int, logger *logging.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		name:    name,
		jobs:    make(chan Job, defaultQueueBuffer),
		workers: workers,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

/* Start launches the workers; calling it twice is a no-op */
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for job := range q.jobs {
		metrics.SetQueueDepth(q.name, len(q.jobs))
		if err := job(q.ctx); err != nil {
			q.logger.Error("Notification job failed", err, map[string]interface{}{"queue": q.name})
		}
	}
}

/* Enqueue buffers a job; it blocks while the buffer is full until Stop is called */
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
	case <-q.done:
		return ErrQueueClosed
	}
	metrics.SetQueueDepth(q.name, len(q.jobs))
	return nil
}

/* Stop closes the queue, lets workers drain it and waits for them */
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.done) })

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	started := q.started
	q.mu.Unlock()

	if !started {
		/* Nobody will drain the buffer */
		q.cancel()
		return
	}
	q.wg.Wait()
	q.cancel()
}
