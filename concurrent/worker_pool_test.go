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

package concurrent_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/botobag/graphqlext/concurrent"
	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/graphql"
	"github.com/botobag/graphqlext/internal/testutil"
	"github.com/botobag/graphqlext/kernel"
	"github.com/botobag/graphqlext/lifecycle"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func shutdownPool(pool *concurrent.WorkerPool) {
	terminated, err := pool.Shutdown()
	Expect(err).ShouldNot(HaveOccurred())
	Eventually(terminated).Should(Receive())
}

var versionTask = concurrent.RequestTaskFunc(func(request *lifecycle.Request) (interface{}, error) {
	return request.Call(graphql.ClassName, graphql.MethodVersion)
})

var _ = Describe("WorkerPool", func() {
	var manager *lifecycle.Manager

	BeforeEach(func() {
		manager = lifecycle.NewManager(graphql.Module(), lifecycle.Config{
			Kernel: kernel.DefaultConfig(),
		}, zerolog.Nop())
		Expect(manager.Load()).Should(Succeed())
	})

	AfterEach(func() {
		Expect(manager.Unload()).Should(Succeed())
	})

	newPool := func(workers uint32) *concurrent.WorkerPool {
		pool, err := concurrent.NewWorkerPool(concurrent.WorkerPoolConfig{
			Manager: manager,
			Workers: workers,
			Logger:  zerolog.Nop(),
		})
		Expect(err).ShouldNot(HaveOccurred())
		return pool
	}

	It("cannot be created with invalid config", func() {
		_, err := concurrent.NewWorkerPool(concurrent.WorkerPoolConfig{
			Manager: manager,
		})
		Expect(err).Should(testutil.MatchFailure(
			testutil.MessageContainSubstring("Workers must be a non-zero value"),
			testutil.KindIs(failure.ErrKindConfig),
		))

		_, err = concurrent.NewWorkerPool(concurrent.WorkerPoolConfig{
			Workers: 1,
		})
		Expect(err).Should(testutil.MatchFailure(
			testutil.MessageContainSubstring("Manager is required"),
		))
	})

	It("fails to start when the module is not loaded", func() {
		Expect(manager.Unload()).Should(Succeed())

		_, err := concurrent.NewWorkerPool(concurrent.WorkerPoolConfig{
			Manager: manager,
			Workers: 2,
		})
		Expect(err).Should(testutil.MatchFailure(
			testutil.MessageEqual("cannot start worker pool"),
			testutil.KindIs(failure.ErrKindLifecycle),
		))
	})

	It("starts one thread per worker", func() {
		pool := newPool(3)
		threads := pool.Threads()
		Expect(threads).Should(HaveLen(3))
		Expect(manager.Threads()).Should(ConsistOf(threads[0], threads[1], threads[2]))

		shutdownPool(pool)
		for _, thread := range threads {
			Expect(thread.State()).Should(Equal(lifecycle.StateUnloaded))
		}
		Expect(manager.Threads()).Should(BeEmpty())
	})

	It("executes a task inside a request", func() {
		pool := newPool(1)

		handle, err := pool.Submit(versionTask)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(handle.AwaitResult(0)).Should(Equal("1.0"))

		shutdownPool(pool)
	})

	It("executes multiple tasks with pool", func() {
		pool := newPool(4)

		var x int32
		task := concurrent.RequestTaskFunc(func(request *lifecycle.Request) (interface{}, error) {
			atomic.AddInt32(&x, 1)
			return request.Call(graphql.ClassName, graphql.MethodVersion)
		})

		const TIMES = 100
		handles := make([]concurrent.TaskHandle, TIMES)
		for i := range handles {
			var err error
			handles[i], err = pool.Submit(task)
			Expect(err).ShouldNot(HaveOccurred())
		}

		shutdownPool(pool)

		Expect(x).Should(Equal(int32(TIMES)))
		for _, handle := range handles {
			Expect(handle.AwaitResult(time.Second)).Should(Equal("1.0"))
		}

		var requests uint64
		for _, thread := range pool.Threads() {
			requests += thread.Stats().Globals.Requests
		}
		Expect(requests).Should(BeEquivalentTo(TIMES))
	})

	It("never overlaps requests on a worker", func() {
		pool := newPool(2)

		var (
			mutex  sync.Mutex
			active = map[*lifecycle.Thread]bool{}
		)
		task := concurrent.RequestTaskFunc(func(request *lifecycle.Request) (interface{}, error) {
			thread := request.Thread()

			mutex.Lock()
			overlapped := active[thread]
			active[thread] = true
			mutex.Unlock()

			time.Sleep(time.Millisecond)

			mutex.Lock()
			active[thread] = false
			mutex.Unlock()

			return overlapped, nil
		})

		handles := make([]concurrent.TaskHandle, 20)
		for i := range handles {
			var err error
			handles[i], err = pool.Submit(task)
			Expect(err).ShouldNot(HaveOccurred())
		}
		for _, handle := range handles {
			Expect(handle.AwaitResult(0)).Should(BeFalse())
		}

		shutdownPool(pool)
	})

	It("reports the error of a failed request and keeps serving", func() {
		pool := newPool(1)

		handle, err := pool.Submit(concurrent.RequestTaskFunc(func(request *lifecycle.Request) (interface{}, error) {
			return request.Call(graphql.ClassName, "execute")
		}))
		Expect(err).ShouldNot(HaveOccurred())

		result, err := handle.AwaitResult(0)
		Expect(result).Should(BeNil())
		Expect(failure.Is(err, failure.ErrKindNotFound)).Should(BeTrue())

		handle, err = pool.Submit(concurrent.RequestTaskFunc(func(request *lifecycle.Request) (interface{}, error) {
			panic("boom")
		}))
		Expect(err).ShouldNot(HaveOccurred())
		_, err = handle.AwaitResult(0)
		Expect(failure.Is(err, failure.ErrKindInternal)).Should(BeTrue())

		handle, err = pool.Submit(versionTask)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(handle.AwaitResult(0)).Should(Equal("1.0"))

		shutdownPool(pool)
	})

	It("can cancel a task", func() {
		pool := newPool(1)

		stopFirstTask := make(chan bool, 1)
		enterFirstTask := make(chan bool, 1)
		firstTask := concurrent.RequestTaskFunc(func(*lifecycle.Request) (interface{}, error) {
			enterFirstTask <- true
			<-stopFirstTask
			return "first task result", nil
		})

		firstTaskHandle, err := pool.Submit(firstTask)
		Expect(err).ShouldNot(HaveOccurred())

		// Wait until the first task is executed.
		<-enterFirstTask

		// We cannot cancel the first task because it is being executed.
		Expect(firstTaskHandle.Cancel()).ShouldNot(Succeed())

		secondTaskHandle, err := pool.Submit(versionTask)
		Expect(err).ShouldNot(HaveOccurred())

		// The only worker is busy.
		_, err = secondTaskHandle.AwaitResult(10 * time.Millisecond)
		Expect(err).Should(MatchError(concurrent.ErrAwaitTaskResultTimeout))

		Expect(secondTaskHandle.Cancel()).Should(Succeed())

		stopFirstTask <- true
		shutdownPool(pool)

		Expect(firstTaskHandle.AwaitResult(0)).Should(Equal("first task result"))
		_, err = secondTaskHandle.AwaitResult(0)
		Expect(err).Should(MatchError(concurrent.ErrTaskCancelled))
	})

	It("executes tasks synchronously with a context", func() {
		pool := newPool(1)

		Expect(pool.Execute(context.Background(), versionTask)).Should(Equal("1.0"))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := pool.Execute(ctx, versionTask)
		Expect(err).Should(HaveOccurred())

		shutdownPool(pool)
	})

	It("allows calling shutdown multiple times", func() {
		pool := newPool(2)

		producerDone := make(chan bool, 1)
		go func() {
			for i := 0; i < 100; i++ {
				pool.Submit(versionTask)
			}
			producerDone <- true
		}()

		const NumShutdownRequests = 10
		terminations := make([]<-chan bool, NumShutdownRequests)
		for i := 0; i < NumShutdownRequests; i++ {
			var err error
			terminations[i], err = pool.Shutdown()
			Expect(err).ShouldNot(HaveOccurred())
		}

		for _, termination := range terminations {
			Eventually(termination).Should(Receive())
		}

		<-producerDone

		// Shutdown after termination
		shutdownPool(pool)
	})

	It("cannot submit task after shutdown", func() {
		pool := newPool(1)

		stopTask := make(chan bool, 1)
		enterTask := make(chan bool, 1)
		taskHandle, err := pool.Submit(concurrent.RequestTaskFunc(func(*lifecycle.Request) (interface{}, error) {
			enterTask <- true
			<-stopTask
			return "task executed before shutdown", nil
		}))
		Expect(err).ShouldNot(HaveOccurred())

		<-enterTask

		terminated, err := pool.Shutdown()
		Expect(err).ShouldNot(HaveOccurred())
		Expect(terminated).ShouldNot(Receive())

		_, err = pool.Submit(versionTask)
		Expect(err).Should(testutil.MatchFailure(
			testutil.KindIs(failure.ErrKindLifecycle),
		))

		stopTask <- true

		Eventually(terminated).Should(Receive())
		Expect(taskHandle.AwaitResult(0)).Should(Equal("task executed before shutdown"))
	})
})
