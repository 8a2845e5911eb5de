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
	"errors"
	"time"

	"github.com/botobag/graphqlext/lifecycle"
)

// RequestTask is a unit of work that runs inside a request on one of the workers of an Executor.
type RequestTask interface {
	// Run performs the task. The request is torn down after Run returns. The return values are sent
	// to the corresponding TaskHandle.
	Run(request *lifecycle.Request) (interface{}, error)
}

// The RequestTaskFunc type is an adapter to allow the use of ordinary functions as a RequestTask.
type RequestTaskFunc func(request *lifecycle.Request) (interface{}, error)

// RequestTaskFunc implements RequestTask.
var _ RequestTask = (RequestTaskFunc)(nil)

// Run implements RequestTask. It calls f(request).
func (f RequestTaskFunc) Run(request *lifecycle.Request) (interface{}, error) {
	return f(request)
}

// Error values to be returned from AwaitResult.
var (
	// ErrTaskCancelled indicates the task is cancelled.
	ErrTaskCancelled = errors.New("task was cancelled")
	// ErrAwaitTaskResultTimeout indicates runs out of time to wait for result.
	ErrAwaitTaskResultTimeout = errors.New("timeout while waiting task result")
)

// TaskHandle tracks progress of a RequestTask and can be used to cancel execution and/or wait for
// completion.
type TaskHandle interface {
	// Cancel tries to cancel execution of the associated task. It fails once a worker has taken the
	// task.
	Cancel() error

	// AwaitResult blocks caller until the underlying task completed or timeout. A non-positive timeout
	// waits forever. Possible return values are:
	//
	//  1. (nil, ErrTaskCancelled): task was cancelled.
	//  2. (nil, ErrAwaitTaskResultTimeout)
	//  3. (any, any): the result of the task, or the error that failed its request.
	AwaitResult(timeout time.Duration) (interface{}, error)
}

// Executor provides interfaces to manage and to execute tasks.
type Executor interface {
	// Shutdown shuts down the executor. Previously submitted tasks are executed but no new tasks will
	// be accepted. It is an no-op if the executor has already shut down. It returns a channel which
	// will receives a notification from the Executor when all remaining tasks have completed after
	// shutdown request.
	Shutdown() (terminated <-chan bool, err error)

	// Submit submits a task for execution. The method only arranges task for execution. The actual
	// execution may occur sometime later.
	Submit(task RequestTask) (TaskHandle, error)
}
