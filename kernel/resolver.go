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

package kernel

// Resolver resolves a call site to its target on a cache miss. Resolve must be deterministic for a
// given site: the cache returns its first result for every later lookup.
type Resolver interface {
	Resolve(site CallSite) (interface{}, error)
}

// The ResolverFunc type is an adapter to allow the use of ordinary functions as Resolver.
type ResolverFunc func(site CallSite) (interface{}, error)

var _ Resolver = (ResolverFunc)(nil)

// Resolve implements Resolver by calling f(site).
func (f ResolverFunc) Resolve(site CallSite) (interface{}, error) {
	return f(site)
}
