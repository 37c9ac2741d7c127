package syncer

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxConcurrentTasks = 8
	defaultTaskTimeout        = 30 * time.Second
)

// Dispatcher runs supervised background tasks with bounded concurrency. Tasks
// carry their own error handling: a failed task is logged with its name and
// never affects its siblings or the dispatching request.
type Dispatcher struct {
	sem     chan struct{}
	wg      sync.WaitGroup
	timeout time.Duration
}

// NewDispatcher constructs a Dispatcher. Non-positive arguments fall back to
// defaults.
func NewDispatcher(maxConcurrent int, taskTimeout time.Duration) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentTasks
	}
	if taskTimeout <= 0 {
		taskTimeout = defaultTaskTimeout
	}
	return &Dispatcher{
		sem:     make(chan struct{}, maxConcurrent),
		timeout: taskTimeout,
	}
}

// Dispatch schedules a task. The task receives a fresh timeout-bounded
// context, detached from the dispatching request's lifetime.
func (d *Dispatcher) Dispatch(name string, task func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sem <- struct{}{}
		defer func() { <-d.sem }()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("background task %s panicked: %v", name, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if errTask := task(ctx); errTask != nil {
			log.WithError(errTask).Warnf("background task %s failed", name)
		}
	}()
}

// Wait blocks until all dispatched tasks have finished. Used by tests and
// graceful shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
