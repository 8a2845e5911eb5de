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

// Package arena implements the request-scoped memory frame stack.
//
// An Arena hands out memory from large chunks with a bump pointer and groups allocations into
// frames. A frame is opened with PushFrame when a unit of work (typically one guarded call) begins
// and closed with PopFrame when it ends; popping returns every byte allocated since the matching
// push in one step, without individual deallocation. Frames form a strict stack: only the active
// (top) frame can be popped.
//
// Every Arena starts with a root frame that represents the request itself. The root frame is never
// popped; its memory is reclaimed by Release at request teardown.
//
//	a := arena.New(nil)
//	defer a.Release()
//
//	if _, err := a.PushFrame(); err != nil {
//		return err
//	}
//	buf, err := a.Allocate(128)
//	...
//	a.PopFrame()
//
// Popping the root frame is an integration error. Default builds report it as an error of kind
// failure.ErrKindImbalancedFrameStack; builds with the "release" tag ignore it.
//
// An Arena is not safe for concurrent use. It is owned by the request that created it.
package arena
