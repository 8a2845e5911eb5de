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

	"github.com/rs/xid"

	"github.com/botobag/graphqlext/arena"
	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/kernel"
)

// Request is the scope of one request on a Thread. It is valid until the request ends.
type Request struct {
	id      xid.ID
	ctx     context.Context
	thread  *Thread
	globals *kernel.Globals
}

// ID identifies the request in logs.
func (r *Request) ID() xid.ID {
	return r.id
}

// Context returns the context given to BeginRequest.
func (r *Request) Context() context.Context {
	return r.ctx
}

// Thread returns the thread serving the request.
func (r *Request) Thread() *Thread {
	return r.thread
}

// Arena returns the allocator of the request. Memory from it is reclaimed when the request ends.
func (r *Request) Arena() *arena.Arena {
	return r.globals.Arena()
}

// Call invokes method of class. Each call is guarded by the recursion limit and runs in its own arena
// frame; memory allocated by the method is reclaimed when the call returns. The method is resolved
// through the call cache of the thread.
func (r *Request) Call(class, method string, args ...interface{}) (result interface{}, err error) {
	const op = failure.Op("lifecycle.Call")

	if err := r.globals.EnterCall(); err != nil {
		return nil, failure.New(fmt.Sprintf("cannot call %s::%s()", class, method), op, err)
	}
	defer r.globals.ExitCall()

	a := r.Arena()
	if a == nil {
		return nil, failure.New("request has ended", op, failure.ErrKindLifecycle)
	}
	frame, err := a.PushFrame()
	if err != nil {
		return nil, failure.New(fmt.Sprintf("cannot call %s::%s()", class, method), op, err)
	}
	defer func() {
		// Frames left open by the method are popped together with ours.
		var popErr error
		if a.Top() != frame {
			popErr = failure.New("frame stack changed during the call", failure.ErrKindImbalancedFrameStack)
		}
		for a.Live(frame) {
			if e := a.PopFrame(); e != nil {
				popErr = e
				break
			}
		}
		if popErr != nil && err == nil {
			result, err = nil, failure.New(fmt.Sprintf("cannot return from %s::%s()", class, method), op, popErr)
		}
	}()

	target, err := r.globals.Resolve(kernel.MakeCallSite(class, method), r.thread.manager.registry)
	if err != nil {
		return nil, err
	}

	bound, ok := target.(*BoundMethod)
	if !ok {
		return nil, failure.New(fmt.Sprintf("unexpected target %T for %s::%s()", target, class, method), op,
			failure.ErrKindInternal)
	}
	return bound.Invoke(r, args...)
}
