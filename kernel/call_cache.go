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

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// DefaultCacheSlots is the number of slots in a call cache when Config.CacheSlots is not set.
const DefaultCacheSlots = 512

// probeWindow is the number of consecutive slots examined for a call site.
const probeWindow = 8

// CallSite identifies a call location. The runtime builds it from the class and method names.
type CallSite string

// MakeCallSite returns the call site of method on class.
func MakeCallSite(class, method string) CallSite {
	return CallSite(class + "::" + method)
}

// CacheStats counts call cache activity.
type CacheStats struct {
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Stores     uint64 `json:"stores"`
	Overwrites uint64 `json:"overwrites"`
}

type cacheEntry struct {
	site   CallSite
	target interface{}
}

// CallCache is a fixed-size open-addressed table from call sites to resolved targets. Entries are
// only added or overwritten, never deleted: a call site that is present sits within probeWindow
// slots of its home slot with no empty slot in between. When the window is full, the home slot is
// overwritten.
//
// CallCache is confined to the worker owning it. Stats may be read from any goroutine.
type CallCache struct {
	// nil marks an empty slot.
	slots []*cacheEntry
	len   int

	hits       atomic.Uint64
	misses     atomic.Uint64
	stores     atomic.Uint64
	overwrites atomic.Uint64
}

// NewCallCache creates a cache with the given number of slots. If numSlots <= 0,
// DefaultCacheSlots is used.
func NewCallCache(numSlots int) *CallCache {
	if numSlots <= 0 {
		numSlots = DefaultCacheSlots
	}
	return &CallCache{
		slots: make([]*cacheEntry, numSlots),
	}
}

func (cache *CallCache) home(site CallSite) int {
	return int(xxhash.Sum64String(string(site)) % uint64(len(cache.slots)))
}

func (cache *CallCache) window() int {
	if len(cache.slots) < probeWindow {
		return len(cache.slots)
	}
	return probeWindow
}

// Lookup returns the target cached for site. A miss is never an error.
func (cache *CallCache) Lookup(site CallSite) (interface{}, bool) {
	numSlots := len(cache.slots)
	i := cache.home(site)
	for n := cache.window(); n > 0; n-- {
		entry := cache.slots[i]
		if entry == nil {
			break
		}
		if entry.site == site {
			cache.hits.Add(1)
			return entry.target, true
		}
		i = (i + 1) % numSlots
	}
	cache.misses.Add(1)
	return nil, false
}

// Store caches target for site.
func (cache *CallCache) Store(site CallSite, target interface{}) {
	numSlots := len(cache.slots)
	home := cache.home(site)
	i := home
	for n := cache.window(); n > 0; n-- {
		entry := cache.slots[i]
		if entry == nil {
			cache.slots[i] = &cacheEntry{site, target}
			cache.len++
			cache.stores.Add(1)
			return
		}
		if entry.site == site {
			entry.target = target
			cache.stores.Add(1)
			return
		}
		i = (i + 1) % numSlots
	}

	// The window is full.
	cache.slots[home] = &cacheEntry{site, target}
	cache.stores.Add(1)
	cache.overwrites.Add(1)
}

// Len returns the number of occupied slots.
func (cache *CallCache) Len() int {
	return cache.len
}

// Cap returns the number of slots.
func (cache *CallCache) Cap() int {
	return len(cache.slots)
}

// Stats returns a snapshot of the counters.
func (cache *CallCache) Stats() CacheStats {
	return CacheStats{
		Hits:       cache.hits.Load(),
		Misses:     cache.misses.Load(),
		Stores:     cache.stores.Load(),
		Overwrites: cache.overwrites.Load(),
	}
}

// Clear empties all slots and resets the counters. It is only used when the owning Globals shuts
// down.
func (cache *CallCache) Clear() {
	clear(cache.slots)
	cache.len = 0
	cache.hits.Store(0)
	cache.misses.Store(0)
	cache.stores.Store(0)
	cache.overwrites.Store(0)
}
