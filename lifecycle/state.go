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

// State enumerates the lifecycle states of a Manager or a Thread.
type State int32

// Enumeration of State
const (
	// Nothing is registered. Initial and terminal state.
	StateUnloaded State = iota

	// The module is loaded and its classes are registered.
	StateProcessReady

	// A worker has its global state constructed and is waiting for requests.
	StateThreadReady

	// A request is running on the worker.
	StateRequestActive
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "Unloaded"
	case StateProcessReady:
		return "ProcessReady"
	case StateThreadReady:
		return "ThreadReady"
	case StateRequestActive:
		return "RequestActive"
	}
	return "Unknown"
}
