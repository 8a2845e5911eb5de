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

// Package lifecycle brings an extension module up and down and runs requests against it.
//
// The lifecycle has four states:
//
//	Unloaded --Load--> ProcessReady --StartThread--> ThreadReady <--BeginRequest/EndRequest--> RequestActive
//	                                                  |
//	Unloaded <-------------------Stop / Unload---------+
//
// A Manager owns the process-wide part: the module entry and the registry of its classes. Every
// worker obtains a Thread from StartThread; a Thread owns one kernel.Globals and is confined to the
// goroutine that serves its requests. Requests on a Thread are strictly serialized.
//
// Thread.Do is the way to run a request: it initializes the request, runs the body and tears the
// request down on every exit path, including failures and panics in the body.
package lifecycle
