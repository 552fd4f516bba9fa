package utils

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// WorkerGroup runs tasks on their own goroutines with at most a fixed number running at once. Tasks
// waiting for a slot when the group stops see a canceled context and never run.
type WorkerGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	slots  chan struct{}

	mu      sync.Mutex
	stopped bool
	active  sync.WaitGroup
}

// NewWorkerGroup returns a WorkerGroup that runs up to limit tasks at once. A limit below one is
// treated as one.
func NewWorkerGroup(limit int) *WorkerGroup {
	if limit < 1 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerGroup{ctx: ctx, cancel: cancel, slots: make(chan struct{}, limit)}
}

// Go schedules task and then calls done with its result. A panicking task is reported to done as an
// error. Go returns false without scheduling anything once the group is stopped.
func (wg *WorkerGroup) Go(task func(context.Context) error, done func(error)) bool {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	if wg.stopped {
		return false
	}
	wg.active.Add(1)
	goutils.PanicCapturingGo(func() {
		defer wg.active.Done()
		done(wg.run(task))
	})
	return true
}

func (wg *WorkerGroup) run(task func(context.Context) error) (err error) {
	select {
	case wg.slots <- struct{}{}:
	case <-wg.ctx.Done():
		return wg.ctx.Err()
	}
	defer func() { <-wg.slots }()
	if wg.ctx.Err() != nil {
		return wg.ctx.Err()
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return task(wg.ctx)
}

// Wait blocks until every scheduled task has finished or ctx is done.
func (wg *WorkerGroup) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	goutils.PanicCapturingGo(func() {
		wg.active.Wait()
		close(finished)
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels the context given to tasks and waits for every scheduled task to finish.
func (wg *WorkerGroup) Stop() {
	wg.mu.Lock()
	wg.stopped = true
	wg.mu.Unlock()
	wg.cancel()
	wg.active.Wait()
}
