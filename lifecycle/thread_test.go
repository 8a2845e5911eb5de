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

package lifecycle_test

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/botobag/graphqlext/arena"
	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/internal/testutil"
	"github.com/botobag/graphqlext/kernel"
	"github.com/botobag/graphqlext/lifecycle"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// Methods of the "Probe" class used by the tests below.
var probeMethods = map[string]lifecycle.Method{
	"version": constantMethod("1.0"),

	// Allocates args[0] bytes from the request arena and returns the arena size seen inside the call.
	"alloc": func(request *lifecycle.Request, this interface{}, args ...interface{}) (interface{}, error) {
		if _, err := request.Arena().Allocate(args[0].(int)); err != nil {
			return nil, err
		}
		return request.Arena().SizeInUse(), nil
	},

	// Calls itself until the call fails.
	"recurse": func(request *lifecycle.Request, this interface{}, args ...interface{}) (interface{}, error) {
		return request.Call("Probe", "recurse")
	},

	// Calls itself args[0] times and returns the arena depth at the bottom.
	"nest": func(request *lifecycle.Request, this interface{}, args ...interface{}) (interface{}, error) {
		n := args[0].(int)
		if n == 0 {
			return request.Arena().Depth(), nil
		}
		return request.Call("Probe", "nest", n-1)
	},

	// Pushes a frame and returns without popping it.
	"leak": func(request *lifecycle.Request, this interface{}, args ...interface{}) (interface{}, error) {
		if _, err := request.Arena().PushFrame(); err != nil {
			return nil, err
		}
		_, err := request.Arena().Allocate(64)
		return nil, err
	},

	"panic": func(request *lifecycle.Request, this interface{}, args ...interface{}) (interface{}, error) {
		panic("boom")
	},
}

var _ = Describe("Thread", func() {
	var (
		config  lifecycle.Config
		manager *lifecycle.Manager
		thread  *lifecycle.Thread
		ctx     context.Context
	)

	BeforeEach(func() {
		config = lifecycle.Config{
			Kernel: kernel.DefaultConfig(),
		}
		ctx = context.Background()
	})

	JustBeforeEach(func() {
		manager = lifecycle.NewManager(&lifecycle.ModuleEntry{
			Name:    "probe",
			Version: "0.0.1",
			Classes: []*lifecycle.Class{
				{
					Name:    "Probe",
					Methods: probeMethods,
				},
			},
		}, config, zerolog.Nop())
		Expect(manager.Load()).Should(Succeed())

		var err error
		thread, err = manager.StartThread()
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		Expect(manager.Unload()).Should(Succeed())
	})

	It("runs a request in scope", func() {
		var request *lifecycle.Request
		Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
			request = r
			Expect(thread.State()).Should(Equal(lifecycle.StateRequestActive))
			Expect(r.Thread()).Should(BeIdenticalTo(thread))
			Expect(r.Context()).Should(Equal(ctx))
			Expect(r.Arena()).ShouldNot(BeNil())
			Expect(r.ID().IsNil()).Should(BeFalse())
			Expect(r.Call("Probe", "version")).Should(Equal("1.0"))
			return nil
		})).Should(Succeed())

		Expect(thread.State()).Should(Equal(lifecycle.StateThreadReady))
		Expect(thread.Globals().RequestActive()).Should(BeFalse())
		Expect(request.Arena()).Should(BeNil())
	})

	It("refuses a second request while one is active", func() {
		_, err := thread.BeginRequest(ctx)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = thread.BeginRequest(ctx)
		Expect(err).Should(testutil.MatchFailure(
			testutil.MessageEqual("cannot begin a request in state RequestActive"),
			testutil.KindIs(failure.ErrKindLifecycle),
		))

		Expect(thread.Stop()).Should(testutil.MatchFailure(
			testutil.KindIs(failure.ErrKindLifecycle),
		))

		Expect(thread.EndRequest()).Should(Succeed())
	})

	It("ends a request safely when none is active", func() {
		Expect(thread.EndRequest()).Should(Succeed())
		Expect(thread.EndRequest()).Should(Succeed())
		Expect(thread.State()).Should(Equal(lifecycle.StateThreadReady))
	})

	It("refuses to begin a request with a canceled context", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		called := false
		err := thread.Do(canceled, func(*lifecycle.Request) error {
			called = true
			return nil
		})
		Expect(err).Should(testutil.MatchFailure(
			testutil.KindIs(failure.ErrKindLifecycle),
		))
		Expect(errors.Is(err, context.Canceled)).Should(BeTrue())
		Expect(called).Should(BeFalse())
		Expect(thread.State()).Should(Equal(lifecycle.StateThreadReady))
	})

	It("tears the request down when the body fails", func() {
		failed := errors.New("failed")
		Expect(thread.Do(ctx, func(*lifecycle.Request) error {
			return failed
		})).Should(MatchError(failed))

		Expect(thread.State()).Should(Equal(lifecycle.StateThreadReady))
		Expect(thread.Globals().RequestActive()).Should(BeFalse())
		Expect(thread.Stats().FailedRequests).Should(BeEquivalentTo(1))
	})

	It("recovers from a panic and tears the request down", func() {
		err := thread.Do(ctx, func(r *lifecycle.Request) error {
			_, err := r.Call("Probe", "panic")
			return err
		})
		Expect(err).Should(testutil.MatchFailure(
			testutil.MessageEqual("request panicked: boom"),
			testutil.OpIs("lifecycle.Do"),
			testutil.KindIs(failure.ErrKindInternal),
		))

		Expect(thread.State()).Should(Equal(lifecycle.StateThreadReady))
		Expect(thread.Globals().RequestActive()).Should(BeFalse())

		// The next request starts clean.
		Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
			Expect(thread.Globals().RecursionDepth()).Should(BeZero())
			Expect(r.Call("Probe", "version")).Should(Equal("1.0"))
			return nil
		})).Should(Succeed())
	})

	It("reports unknown methods", func() {
		Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
			_, err := r.Call("Probe", "missing")
			return err
		})).Should(testutil.MatchFailure(
			testutil.KindIs(failure.ErrKindNotFound),
		))
	})

	It("reclaims memory allocated by a call when it returns", func() {
		Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
			_, err := r.Arena().Allocate(24)
			Expect(err).ShouldNot(HaveOccurred())
			before := r.Arena().SizeInUse()

			inside, err := r.Call("Probe", "alloc", 100)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(inside).Should(BeNumerically(">=", before+100))

			Expect(r.Arena().SizeInUse()).Should(Equal(before))
			Expect(r.Arena().Depth()).Should(BeZero())
			return nil
		})).Should(Succeed())
	})

	It("runs every nested call in its own frame", func() {
		Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
			depth, err := r.Call("Probe", "nest", 5)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(depth).Should(Equal(6))
			Expect(r.Arena().Depth()).Should(BeZero())
			Expect(thread.Globals().RecursionDepth()).Should(BeZero())
			return nil
		})).Should(Succeed())
	})

	It("pops frames a method left open together with the frame of the call", func() {
		Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
			before := r.Arena().SizeInUse()

			_, err := r.Call("Probe", "leak")
			Expect(err).Should(testutil.MatchFailure(
				testutil.OpIs("lifecycle.Call"),
				testutil.KindIs(failure.ErrKindImbalancedFrameStack),
			))
			Expect(r.Arena().Depth()).Should(BeZero())
			Expect(r.Arena().SizeInUse()).Should(Equal(before))

			// The thread keeps serving calls.
			version, err := r.Call("Probe", "version")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(version).Should(Equal("1.0"))
			return nil
		})).Should(Succeed())
	})

	It("gives each request a fresh arena and keeps the call cache", func() {
		var arenaA *arena.Arena

		// Request A
		Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
			arenaA = r.Arena()
			_, err := r.Arena().Allocate(4096)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(r.Call("Probe", "version")).Should(Equal("1.0"))
			return nil
		})).Should(Succeed())

		Expect(arenaA.Released()).Should(BeTrue())

		// Request B
		Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
			Expect(r.Arena()).ShouldNot(BeIdenticalTo(arenaA))
			Expect(r.Arena().SizeInUse()).Should(BeZero())
			Expect(r.Call("Probe", "version")).Should(Equal("1.0"))
			return nil
		})).Should(Succeed())

		stats := thread.Stats()
		Expect(stats.Globals.Requests).Should(BeEquivalentTo(2))
		Expect(stats.Globals.Cache.Misses).Should(BeEquivalentTo(1))
		Expect(stats.Globals.Cache.Hits).Should(BeEquivalentTo(1))
		Expect(stats.Globals.LastArena.SizeInUse).Should(BeZero())
		Expect(stats.State).Should(Equal("ThreadReady"))
		Expect(stats.ID).Should(Equal(thread.ID().String()))
	})

	Context("with a small recursion limit", func() {
		BeforeEach(func() {
			config.Kernel.RecursionLimit = 16
		})

		It("stops runaway recursion and recovers for the next request", func() {
			Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
				_, err := r.Call("Probe", "recurse")
				Expect(err).Should(testutil.MatchFailure(
					testutil.KindIs(failure.ErrKindRecursionLimitExceeded),
				))
				Expect(thread.Globals().RecursionDepth()).Should(BeZero())
				Expect(r.Arena().Depth()).Should(BeZero())
				return nil
			})).Should(Succeed())

			Expect(thread.Stats().Globals.RecursionPeak).Should(BeEquivalentTo(16))

			Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
				_, err := r.Call("Probe", "nest", 15)
				return err
			})).Should(Succeed())
		})
	})

	Context("with the call cache disabled", func() {
		BeforeEach(func() {
			config.Kernel.CacheEnabled = false
		})

		It("resolves every call", func() {
			for i := 0; i < 3; i++ {
				Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
					_, err := r.Call("Probe", "version")
					return err
				})).Should(Succeed())
			}
			stats := thread.Stats()
			Expect(stats.Globals.CacheEnabled).Should(BeFalse())
			Expect(stats.Globals.Cache.Hits).Should(BeZero())
			Expect(stats.Globals.Cache.Stores).Should(BeZero())
		})
	})

	Context("with a limited arena", func() {
		BeforeEach(func() {
			config.Kernel.Arena = arena.Config{
				ChunkSize: 1024,
				Limit:     4096,
			}
		})

		It("fails the request on exhaustion and serves the next one", func() {
			err := thread.Do(ctx, func(r *lifecycle.Request) error {
				_, err := r.Call("Probe", "alloc", 8192)
				return err
			})
			Expect(err).Should(testutil.MatchFailure(
				testutil.KindIs(failure.ErrKindOutOfMemory),
			))
			Expect(thread.State()).Should(Equal(lifecycle.StateThreadReady))

			Expect(thread.Do(ctx, func(r *lifecycle.Request) error {
				_, err := r.Call("Probe", "alloc", 512)
				return err
			})).Should(Succeed())
		})
	})

	It("refuses requests once stopped", func() {
		Expect(thread.Stop()).Should(Succeed())
		Expect(thread.Stop()).Should(Succeed())
		Expect(manager.Threads()).Should(BeEmpty())

		Expect(thread.Do(ctx, func(*lifecycle.Request) error {
			return nil
		})).Should(testutil.MatchFailure(
			testutil.MessageEqual("cannot begin a request in state Unloaded"),
			testutil.KindIs(failure.ErrKindLifecycle),
		))
		Expect(thread.Stats().State).Should(Equal("Unloaded"))
	})
})
