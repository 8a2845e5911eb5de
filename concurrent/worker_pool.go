/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package concurrent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/lifecycle"
)

//===----------------------------------------------------------------------------------------====//
// WorkerPoolConfig
//===----------------------------------------------------------------------------------------====//

// WorkerPoolConfig contains options to configure a WorkerPool.
type WorkerPoolConfig struct {
	// Manager that starts a Thread for every worker (required, must be loaded)
	Manager *lifecycle.Manager

	// The number of workers in pool (required, must be greater than 0)
	Workers uint32

	// Queue provides storage to store queueing tasks. If not set, a taskQueue will be created and be
	// used.
	Queue Queue

	Logger zerolog.Logger
}

// Validate verifies config values.
func (config *WorkerPoolConfig) Validate() error {
	const op = failure.Op("concurrent.NewWorkerPool")
	if config.Manager == nil {
		return failure.New("WorkerPool: Manager is required", op, failure.ErrKindConfig)
	}

	if config.Workers == 0 {
		return failure.New(`WorkerPool: Workers must be a non-zero value which specifies the number `+
			`of workers to be created by the pool. If you have no idea, try to set the value to `+
			`uint32(runtime.GOMAXPROCS(-1)).`, op, failure.ErrKindConfig)
	}
	return nil
}

//===----------------------------------------------------------------------------------------====//
// workerPoolState
//===----------------------------------------------------------------------------------------====//

// workerPoolState contains the number of live workers and the running state of the WorkerPool. It
// should be updated atomically with CAS.
type workerPoolState int64

// workerPoolRunState indicates the running state of WorkerPool. It is stored in the high 32 bits of
// workerPoolState. The low 32 bits in workerPoolRunState must be 0.
type workerPoolRunState int64

// Enumeration of workerPoolRunState
const (
	workerPoolRunStateMask int64 = -4294967296 // 0xffffffff00000000

	// Pool accepts and processes tasks. The constant is the one and the only one in
	// workerPoolRunState that sets the HSB. This makes workerPoolState with running state be a
	// negative value and thus enables fast check IsRunning.
	workerPoolRunStateRunning workerPoolRunState = workerPoolRunState(workerPoolRunStateMask)

	// Shutdown is invoked on the pool. Queued tasks are processed but no new tasks will be accepted.
	workerPoolRunStateShutdown workerPoolRunState = 0 // 0x0 << 32

	// All workers have stopped their threads.
	workerPoolRunStateTerminated workerPoolRunState = 4294967296 // 0x1 << 32
)

// RunState reads run state from state word.
func (s workerPoolState) RunState() workerPoolRunState {
	return workerPoolRunState(int64(s) & workerPoolRunStateMask)
}

// WorkerCount returns number of live workers.
func (s workerPoolState) WorkerCount() uint32 {
	return uint32(s & 0xffffffff)
}

// IsRunning returns true if the run state is workerPoolRunStateRunning.
func (s workerPoolState) IsRunning() bool {
	return s < 0
}

// IsShutdown returns true if the pool receives an shutdown request.
func (s workerPoolState) IsShutdown() bool {
	return int64(s) >= int64(workerPoolRunStateShutdown)
}

// IsTerminated returns true if the pool is terminated.
func (s workerPoolState) IsTerminated() bool {
	return int64(s) >= int64(workerPoolRunStateTerminated)
}

func makeWorkerPoolState(runState workerPoolRunState, workerCount uint32) workerPoolState {
	return workerPoolState(int64(runState) | int64(workerCount))
}

// Load loads state word with atomic.LoadInt64 because it is a lock-free variable.
func (s *workerPoolState) Load() workerPoolState {
	return workerPoolState(atomic.LoadInt64((*int64)(s)))
}

// SetRunState sets the run state. States only move from RUNNING to SHUTDOWN to TERMINATED.
func (s *workerPoolState) SetRunState(newRunState workerPoolRunState) (oldState workerPoolState) {
	for {
		oldState = s.Load()
		if int64(oldState.RunState()) >= int64(newRunState) {
			return
		}

		newState := makeWorkerPoolState(newRunState, oldState.WorkerCount())
		if atomic.CompareAndSwapInt64((*int64)(s), int64(oldState), int64(newState)) {
			return
		}
	}
}

// AddWorkerCount adds delta to the worker count and returns the new state.
func (s *workerPoolState) AddWorkerCount(delta int64) workerPoolState {
	return workerPoolState(atomic.AddInt64((*int64)(s), delta))
}

//===----------------------------------------------------------------------------------------====//
// workerPoolTask
//===----------------------------------------------------------------------------------------====//

// workerPoolTask implements TaskHandle for RequestTask executed in a WorkerPool.
type workerPoolTask struct {
	RequestTask
	pool *WorkerPool
	ctx  context.Context

	// Closed when result and err are available.
	done chan struct{}

	// Guarded by done.
	result interface{}
	err    error

	// The next task to this task in the taskQueue
	next *workerPoolTask
}

var _ TaskHandle = (*workerPoolTask)(nil)

func newWorkerPoolTask(ctx context.Context, task RequestTask, pool *WorkerPool) *workerPoolTask {
	return &workerPoolTask{
		RequestTask: task,
		pool:        pool,
		ctx:         ctx,
		done:        make(chan struct{}),
	}
}

// Cancel implements TaskHandle.
func (task *workerPoolTask) Cancel() error {
	if err := task.pool.cancelTask(task); err != nil {
		return err
	}
	task.setResult(nil, ErrTaskCancelled)
	return nil
}

// setResult sets the execution result of the task and notifies the waiters blocked in AwaitResult.
// It must be called at most once.
func (task *workerPoolTask) setResult(result interface{}, err error) {
	task.result = result
	task.err = err
	close(task.done)
}

// AwaitResult implements TaskHandle.
func (task *workerPoolTask) AwaitResult(timeout time.Duration) (interface{}, error) {
	if timeout <= 0 {
		<-task.done
		return task.result, task.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-task.done:
		return task.result, task.err
	case <-timer.C:
		return nil, ErrAwaitTaskResultTimeout
	}
}

//===----------------------------------------------------------------------------------------====//
// workerPoolWorker
//===----------------------------------------------------------------------------------------====//

type workerPoolWorker struct {
	// Pool that owns this worker
	pool *WorkerPool

	// Thread of the worker; confined to the goroutine that runs the worker.
	thread *lifecycle.Thread
}

// run starts a thread for the worker, reports to started and executes tasks until the queue is
// closed and drained.
func (w *workerPoolWorker) run(started chan<- error) {
	thread, err := w.pool.config.Manager.StartThread()
	if err != nil {
		w.pool.state.AddWorkerCount(-1)
		started <- err
		return
	}
	w.thread = thread
	started <- nil

	logger := w.pool.logger.With().Str("thread", thread.ID().String()).Logger()
	logger.Debug().Msg("worker started")

	// The run loop
	for {
		task := w.pool.pollTask()
		if task == nil {
			break
		}

		var result interface{}
		err := thread.Do(task.ctx, func(request *lifecycle.Request) error {
			var err error
			result, err = task.Run(request)
			return err
		})
		if err != nil {
			result = nil
		}
		task.setResult(result, err)
	}

	if err := thread.Stop(); err != nil {
		logger.Warn().Err(err).Msg("cannot stop thread")
	}
	logger.Debug().Msg("worker stopped")

	w.pool.terminateWorker()
}

//===----------------------------------------------------------------------------------------====//
// WorkerPool
//===----------------------------------------------------------------------------------------====//

// WorkerPool runs submitted tasks with a fixed set of workers. Every worker is a goroutine that owns
// one lifecycle.Thread, so the global state of a thread is only ever touched by its worker and
// requests on a worker run strictly one after another.
type WorkerPool struct {
	// A lock-free word that contains pool running state and worker count
	state workerPoolState

	config WorkerPoolConfig
	logger zerolog.Logger

	// Task queue contains task to be executed
	taskQueue Queue

	// Workers; written only by NewWorkerPool.
	workers []*workerPoolWorker

	// Mutex for guarding terminations
	mutex sync.Mutex

	// Channels that are used for waiting termination. This is guarded by mutex.
	terminations []chan<- bool
}

// WorkerPool implements Executor.
var _ Executor = (*WorkerPool)(nil)

// NewWorkerPool starts config.Workers workers and waits until each has started its thread. If any
// worker fails to start, the pool is shut down and the error is returned.
func NewWorkerPool(config WorkerPoolConfig) (*WorkerPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	queue := config.Queue
	if queue == nil {
		queue = newTaskQueue()
	}

	pool := &WorkerPool{
		state:     makeWorkerPoolState(workerPoolRunStateRunning, config.Workers),
		config:    config,
		logger:    config.Logger,
		taskQueue: queue,
		workers:   make([]*workerPoolWorker, config.Workers),
	}

	started := make(chan error, config.Workers)
	for i := range pool.workers {
		w := &workerPoolWorker{pool: pool}
		pool.workers[i] = w
		go w.run(started)
	}

	var startErr error
	for range pool.workers {
		if err := <-started; err != nil && startErr == nil {
			startErr = err
		}
	}

	if startErr != nil {
		terminated, _ := pool.Shutdown()
		<-terminated
		return nil, failure.New("cannot start worker pool", failure.Op("concurrent.NewWorkerPool"), startErr)
	}

	pool.logger.Info().Uint32("workers", config.Workers).Msg("worker pool started")
	return pool, nil
}

// Threads returns the threads of the workers. Only their ID, State and Stats may be used.
func (pool *WorkerPool) Threads() []*lifecycle.Thread {
	threads := make([]*lifecycle.Thread, 0, len(pool.workers))
	for _, w := range pool.workers {
		if w.thread != nil {
			threads = append(threads, w.thread)
		}
	}
	return threads
}

// Submit implements Executor. The task runs with context.Background().
func (pool *WorkerPool) Submit(task RequestTask) (TaskHandle, error) {
	return pool.SubmitContext(context.Background(), task)
}

// SubmitContext is like Submit but runs the request of the task with ctx.
func (pool *WorkerPool) SubmitContext(ctx context.Context, task RequestTask) (TaskHandle, error) {
	const op = failure.Op("concurrent.Submit")
	if !pool.state.Load().IsRunning() {
		return nil, failure.New("unable to execute task because worker pool is shutting down", op,
			failure.ErrKindLifecycle)
	}

	handle := newWorkerPoolTask(ctx, task, pool)
	if err := pool.taskQueue.Push(handle); err != nil {
		return nil, failure.New("unable to execute task because worker pool is shutting down", op,
			failure.ErrKindLifecycle, err)
	}
	return handle, nil
}

// Execute submits the task and waits for its result.
func (pool *WorkerPool) Execute(ctx context.Context, task RequestTask) (interface{}, error) {
	handle, err := pool.SubmitContext(ctx, task)
	if err != nil {
		return nil, err
	}

	select {
	case <-handle.(*workerPoolTask).done:
	case <-ctx.Done():
		if handle.Cancel() == nil {
			return nil, ctx.Err()
		}
		// A worker has the task already. Wait for the request to finish.
	}
	return handle.AwaitResult(0)
}

// Shutdown implements Executor. Queued tasks still run; then every worker stops its thread.
func (pool *WorkerPool) Shutdown() (terminated <-chan bool, err error) {
	pool.mutex.Lock()

	termination := make(chan bool, 1)

	prevState := pool.state.SetRunState(workerPoolRunStateShutdown)
	if prevState.IsTerminated() {
		termination <- true
	} else {
		pool.terminations = append(pool.terminations, termination)
		if prevState.IsRunning() {
			// Unblock all workers that are waiting for tasks on empty queue.
			pool.taskQueue.Close()
		}
	}

	pool.mutex.Unlock()

	pool.tryTerminate()

	return termination, nil
}

// tryTerminate transitions to TERMINATED if the pool is shut down and all workers are gone.
func (pool *WorkerPool) tryTerminate() {
	state := pool.state.Load()
	if !state.IsShutdown() || state.IsTerminated() || state.WorkerCount() > 0 {
		return
	}

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	if !pool.state.Load().IsTerminated() {
		pool.state.SetRunState(workerPoolRunStateTerminated)

		terminations := pool.terminations
		pool.terminations = nil
		for _, termination := range terminations {
			termination <- true
		}
		pool.logger.Info().Msg("worker pool terminated")
	}
}

// terminateWorker is called from the goroutine of a worker that has stopped its thread.
func (pool *WorkerPool) terminateWorker() {
	pool.state.AddWorkerCount(-1)
	pool.tryTerminate()
}

// cancelTask tries to remove the task from the queue to stop its execution.
func (pool *WorkerPool) cancelTask(task *workerPoolTask) error {
	if err := pool.taskQueue.Remove(task); err != nil {
		return fmt.Errorf("cannot cancel task: %w", err)
	}
	return nil
}

// pollTask blocks the calling worker to wait for a task. It returns nil when the pool is shut down
// and the queue is drained.
func (pool *WorkerPool) pollTask() *workerPoolTask {
	for {
		task, err := pool.taskQueue.Poll()
		if err != nil {
			pool.logger.Warn().Err(err).Msg("poll failed")
			continue
		}
		if task == nil {
			return nil
		}
		return task.(*workerPoolTask)
	}
}
