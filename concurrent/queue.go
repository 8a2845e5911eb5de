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
	"sync"
	"sync/atomic"
)

var (
	// ErrQueueClosed is returned by Push to indicate the queue cannot accept the new element because
	// it is closed.
	ErrQueueClosed = errors.New("queue: closed")

	// ErrElementNotFound is returned by Remove to indicate the given element is not in the queue.
	ErrElementNotFound = errors.New("queue: given element is not found in the queue")
)

// Queue implements container which stores a collection of objects. Implementation to the interfaces
// should be thread-safe. That is, they need to allow concurrent accesses.
type Queue interface {
	// Push inserts the specified element into this queue. Return nil if the element is successfully
	// inserted. Note that element cannot be nil.
	Push(element interface{}) error

	// Poll pops one element from the head of this queue, blocking until one is available. It returns
	// nil once the queue is closed and drained.
	Poll() (interface{}, error)

	// Remove removes the given element from queue.
	Remove(element interface{}) error

	// Empty returns true if the queue contains no elements.
	Empty() bool

	// Close stops queue to accept new elements. Elements that are submitted to the queue are still
	// available via Poll. Calls to Push will return ErrQueueClosed. Once the queue becomes empty, any
	// calls to Poll will immediately return with nil.
	Close()
}

// taskQueue is the default Queue of a WorkerPool. The queue is essentially a circular linked list
// which makes use of the "intrusive" link in workerPoolTask to optimize footprint.
type taskQueue struct {
	// Tail of linked list; tail.next is the head of linked list. It is read by Empty without locking.
	tail atomic.Pointer[workerPoolTask]

	// Lock that guards writes to tail and pollCond.
	mutex sync.Mutex

	// Condition variable for Poll to wait for Push; If the queue is closed, it will be set to nil.
	pollCond *sync.Cond
}

var _ Queue = (*taskQueue)(nil)

func newTaskQueue() *taskQueue {
	queue := &taskQueue{}
	queue.pollCond = sync.NewCond(&queue.mutex)
	return queue
}

// Push implements Queue.
func (queue *taskQueue) Push(element interface{}) error {
	task := element.(*workerPoolTask)

	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	cond := queue.pollCond
	if cond == nil {
		return ErrQueueClosed
	}

	tail := queue.tail.Load()
	if tail == nil {
		// task is also the head.
		task.next = task
	} else {
		task.next = tail.next
		tail.next = task
	}
	queue.tail.Store(task)

	cond.Signal()
	return nil
}

// Poll implements Queue.
func (queue *taskQueue) Poll() (interface{}, error) {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	for queue.Empty() {
		cond := queue.pollCond
		if cond == nil {
			// Closed and drained.
			return nil, nil
		}
		cond.Wait()
	}

	tail := queue.tail.Load()
	head := tail.next
	if tail == head {
		queue.tail.Store(nil)
	} else {
		tail.next = head.next
	}
	head.next = nil

	return head, nil
}

// Remove implements Queue.
func (queue *taskQueue) Remove(element interface{}) error {
	task := element.(*workerPoolTask)

	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	tail := queue.tail.Load()
	if tail == nil {
		return ErrElementNotFound
	}

	head := tail.next
	prev := tail
	for cur := head; ; cur = cur.next {
		if cur == task {
			if cur == prev {
				// The only element
				queue.tail.Store(nil)
			} else {
				prev.next = cur.next
				if cur == tail {
					queue.tail.Store(prev)
				}
			}
			task.next = nil
			return nil
		}

		if cur == tail {
			break
		}
		prev = cur
	}

	return ErrElementNotFound
}

// Close implements Queue.
func (queue *taskQueue) Close() {
	queue.mutex.Lock()
	if cond := queue.pollCond; cond != nil {
		// Unblock current waiters.
		cond.Broadcast()
		queue.pollCond = nil
	}
	queue.mutex.Unlock()
}

// Empty implements Queue.
func (queue *taskQueue) Empty() bool {
	return queue.tail.Load() == nil
}
