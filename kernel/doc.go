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

// Package kernel holds the per-worker global state of the extension runtime.
//
// A Globals value is created for every worker that serves requests (one per OS thread in a threaded
// host, a single one otherwise) and is confined to that worker: it is never shared, and none of its
// methods lock. It carries
//
//  1. the memory arena of the request in flight, attached by InitializeRequest and released by
//     TeardownRequest;
//  2. a recursion guard bounding the nesting of guarded calls;
//  3. a bounded call cache mapping call sites to resolved targets, which outlives requests.
//
// The expected sequence on a worker is
//
//	g := kernel.NewGlobals(config, logger)
//	g.InitializeProcess()
//	for each request {
//		g.InitializeRequest()
//		... EnterCall/ExitCall, Arena(), Resolve ...
//		g.TeardownRequest()
//	}
//	g.Shutdown()
package kernel
