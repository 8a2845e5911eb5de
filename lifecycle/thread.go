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

package lifecycle

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/kernel"
)

// ThreadStats is a snapshot of a Thread. Snapshots are published by the owning goroutine and may be
// read from anywhere.
type ThreadStats struct {
	ID             string       `json:"id"`
	State          string       `json:"state"`
	FailedRequests uint64       `json:"failed_requests"`
	Globals        kernel.Stats `json:"globals"`
}

// Thread is a worker's view of the module. Apart from ID, State and Stats, its methods must be called
// from a single goroutine, the owner. The global state is only ever touched by the owner: when the
// manager unloads, it marks idle threads Unloaded and each owner releases its global state on its
// next BeginRequest or Stop.
type Thread struct {
	manager *Manager
	id      xid.ID
	logger  zerolog.Logger
	globals *kernel.Globals

	// Transitions are made with compare-and-swap. The owner finishes all work on globals before it
	// stores StateThreadReady, so the manager may mark a ready thread Unloaded at any time.
	state atomic.Int32

	// Set by the owner once globals has been shut down
	released bool

	// Request in flight
	request *Request

	failedRequests uint64
	stats          atomic.Pointer[ThreadStats]
}

func newThread(m *Manager) *Thread {
	id := xid.New()
	logger := m.logger.With().Str("thread", id.String()).Logger()
	return &Thread{
		manager: m,
		id:      id,
		logger:  logger,
		globals: kernel.NewGlobals(m.config.Kernel, logger),
	}
}

// ID identifies the thread in logs and stats.
func (t *Thread) ID() xid.ID {
	return t.id
}

// State returns StateThreadReady, StateRequestActive or StateUnloaded once stopped.
func (t *Thread) State() State {
	return State(t.state.Load())
}

// Globals returns the global state owned by the thread.
func (t *Thread) Globals() *kernel.Globals {
	return t.globals
}

// Manager returns the manager that started the thread.
func (t *Thread) Manager() *Manager {
	return t.manager
}

// Stats returns the most recently published snapshot.
func (t *Thread) Stats() ThreadStats {
	if stats := t.stats.Load(); stats != nil {
		return *stats
	}
	return ThreadStats{
		ID:    t.id.String(),
		State: t.State().String(),
	}
}

// publishStats must be called by the owner.
func (t *Thread) publishStats(state State) {
	t.stats.Store(&ThreadStats{
		ID:             t.id.String(),
		State:          state.String(),
		FailedRequests: t.failedRequests,
		Globals:        t.globals.Stats(),
	})
}

// release shuts down the global state. It must be called by the owner.
func (t *Thread) release() {
	if t.released {
		return
	}
	t.released = true
	t.globals.Shutdown()
	t.publishStats(StateUnloaded)
	t.logger.Debug().Msg("thread released")
}

// BeginRequest moves the thread to RequestActive. On error the thread stays ThreadReady and the
// request must not proceed.
func (t *Thread) BeginRequest(ctx context.Context) (*Request, error) {
	const op = failure.Op("lifecycle.BeginRequest")

	if err := ctx.Err(); err != nil {
		return nil, failure.New("request canceled before it began", op, failure.ErrKindLifecycle, err)
	}

	if !t.state.CompareAndSwap(int32(StateThreadReady), int32(StateRequestActive)) {
		state := t.State()
		if state == StateUnloaded {
			t.release()
		}
		return nil, failure.New(fmt.Sprintf("cannot begin a request in state %s", state), op,
			failure.ErrKindLifecycle)
	}

	if err := t.globals.InitializeRequest(); err != nil {
		if teardownErr := t.globals.TeardownRequest(); teardownErr != nil {
			t.logger.Warn().Err(teardownErr).Msg("teardown after failed request initialization")
		}
		t.state.Store(int32(StateThreadReady))
		return nil, failure.New("cannot initialize request", op, err)
	}

	t.request = &Request{
		id:      xid.New(),
		ctx:     ctx,
		thread:  t,
		globals: t.globals,
	}
	t.logger.Debug().Str("request", t.request.id.String()).Msg("request started")
	return t.request, nil
}

// EndRequest tears down the request in flight and moves the thread back to ThreadReady. It is safe to
// call when no request is active. A teardown error is logged and returned for information only; the
// thread is ready for the next request either way.
func (t *Thread) EndRequest() error {
	if t.State() != StateRequestActive {
		t.logger.Debug().Msg("end of request without an active request")
		return nil
	}

	err := t.globals.TeardownRequest()
	if err != nil {
		t.logger.Warn().Err(err).Msg("request teardown failed")
	}

	if t.request != nil {
		t.logger.Debug().Str("request", t.request.id.String()).Msg("request finished")
		t.request = nil
	}
	t.publishStats(StateThreadReady)
	t.state.Store(int32(StateThreadReady))
	return err
}

// Do runs fn inside a request. The request is torn down however fn returns; a panic in fn is
// recovered and reported as an internal error.
func (t *Thread) Do(ctx context.Context, fn func(*Request) error) (err error) {
	const op = failure.Op("lifecycle.Do")

	request, err := t.BeginRequest(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = failure.New(fmt.Sprintf("request panicked: %v", r), op, failure.ErrKindInternal)
		}
		if err != nil {
			t.failedRequests++
			t.logger.Debug().Err(err).Str("request", request.id.String()).Msg("request failed")
		}
		t.EndRequest()
	}()

	return fn(request)
}

// stop marks a ready thread Unloaded. It may be called from any goroutine and leaves globals to the
// owner.
func (t *Thread) stop() error {
	if t.state.CompareAndSwap(int32(StateThreadReady), int32(StateUnloaded)) {
		stats := t.Stats()
		stats.State = StateUnloaded.String()
		t.stats.Store(&stats)
		t.logger.Debug().Msg("thread stopped")
		return nil
	}

	if t.State() == StateUnloaded {
		return nil
	}
	return failure.New("cannot stop a thread while a request is active",
		failure.Op("lifecycle.Stop"), failure.ErrKindLifecycle)
}

// Stop releases the global state of the thread. A stopped thread refuses new requests. Stopping a
// stopped thread does nothing. Stop must be called by the owner.
func (t *Thread) Stop() error {
	if err := t.stop(); err != nil {
		return err
	}
	t.release()
	t.manager.forgetThread(t)
	return nil
}
