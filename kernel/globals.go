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
	"fmt"

	"github.com/rs/zerolog"

	"github.com/botobag/graphqlext/arena"
	"github.com/botobag/graphqlext/failure"
)

// DefaultRecursionLimit is the nesting ceiling when Config.RecursionLimit is not set.
const DefaultRecursionLimit = 1024

// Config contains the settings applied by InitializeProcess.
type Config struct {
	// Whether Resolve consults the call cache.
	CacheEnabled bool

	// (Optional) Number of call cache slots. Default is DefaultCacheSlots.
	CacheSlots int

	// (Optional) Maximum nesting of guarded calls. Default is DefaultRecursionLimit.
	RecursionLimit uint32

	// Settings for the arena attached to every request.
	Arena arena.Config
}

// DefaultConfig returns a Config with the cache enabled and default limits.
func DefaultConfig() Config {
	return Config{
		CacheEnabled:   true,
		CacheSlots:     DefaultCacheSlots,
		RecursionLimit: DefaultRecursionLimit,
	}
}

// Globals is the global state of one worker.
type Globals struct {
	config Config
	logger zerolog.Logger

	initialized    bool
	cacheEnabled   bool
	recursionDepth uint32
	recursionLimit uint32
	callCache      *CallCache

	// Arena of the request in flight; nil between requests.
	arena *arena.Arena

	requests      uint64
	recursionPeak uint32
	lastArena     arena.Metrics
}

// NewGlobals returns zeroed state. Nothing from config takes effect before InitializeProcess.
func NewGlobals(config Config, logger zerolog.Logger) *Globals {
	return &Globals{
		config: config,
		logger: logger,
	}
}

// InitializeProcess applies the configuration. Calling it again between requests does nothing;
// calling it while a request is active is an error.
func (g *Globals) InitializeProcess() error {
	const op = failure.Op("kernel.InitializeProcess")
	if g.arena != nil {
		return failure.New("cannot initialize while a request is active", op, failure.ErrKindLifecycle)
	}
	if g.initialized {
		return nil
	}

	g.cacheEnabled = g.config.CacheEnabled
	g.recursionLimit = g.config.RecursionLimit
	if g.recursionLimit == 0 {
		g.recursionLimit = DefaultRecursionLimit
	}
	g.callCache = NewCallCache(g.config.CacheSlots)
	g.recursionDepth = 0
	g.initialized = true

	g.logger.Debug().
		Bool("cache_enabled", g.cacheEnabled).
		Int("cache_slots", g.callCache.Cap()).
		Uint32("recursion_limit", g.recursionLimit).
		Msg("globals initialized")
	return nil
}

// InitializeRequest prepares the state for a new request: it resets the recursion guard and
// attaches a fresh arena. The call cache is left untouched.
func (g *Globals) InitializeRequest() error {
	const op = failure.Op("kernel.InitializeRequest")
	if !g.initialized {
		return failure.New("globals are not initialized", op, failure.ErrKindLifecycle)
	}
	if g.arena != nil {
		return failure.New("previous request has not been torn down", op, failure.ErrKindLifecycle)
	}

	g.recursionDepth = 0
	g.arena = arena.New(&g.config.Arena)
	g.requests++
	return nil
}

// TeardownRequest releases and detaches the arena of the current request. It is safe to call when
// no request is active, including after a failed InitializeRequest.
func (g *Globals) TeardownRequest() error {
	const op = failure.Op("kernel.TeardownRequest")
	if !g.initialized {
		return failure.New("globals are not initialized", op, failure.ErrKindLifecycle)
	}

	a := g.arena
	if a == nil {
		g.logger.Debug().Msg("teardown without an attached arena")
		return nil
	}

	if a.Released() {
		g.logger.Warn().Msg("request arena was released before teardown")
	} else {
		g.lastArena = a.Metrics()
		a.Release()
	}
	g.arena = nil
	return nil
}

// EnterCall records entry into a guarded call. It fails without changing the depth when the call
// would nest deeper than the recursion limit.
func (g *Globals) EnterCall() error {
	if g.recursionDepth >= g.recursionLimit {
		return failure.New(
			fmt.Sprintf("maximum call depth of %d reached", g.recursionLimit),
			failure.Op("kernel.EnterCall"),
			failure.ErrKindRecursionLimitExceeded)
	}
	g.recursionDepth++
	if g.recursionDepth > g.recursionPeak {
		g.recursionPeak = g.recursionDepth
	}
	return nil
}

// ExitCall records return from a guarded call.
func (g *Globals) ExitCall() {
	if g.recursionDepth == 0 {
		g.logger.Warn().Msg("ExitCall without matching EnterCall")
		return
	}
	g.recursionDepth--
}

// Resolve returns the target for site. With the cache enabled, a cached target is returned without
// consulting resolver; otherwise resolver is called and a successful result is cached. Errors are
// never cached.
func (g *Globals) Resolve(site CallSite, resolver Resolver) (interface{}, error) {
	useCache := g.cacheEnabled && g.callCache != nil
	if useCache {
		if target, ok := g.callCache.Lookup(site); ok {
			return target, nil
		}
	}

	target, err := resolver.Resolve(site)
	if err != nil {
		return nil, err
	}

	if useCache {
		g.callCache.Store(site, target)
	}
	return target, nil
}

// Shutdown releases everything held by the state and returns it to the zeroed form. A later
// InitializeProcess starts over.
func (g *Globals) Shutdown() {
	if g.arena != nil {
		g.logger.Warn().Msg("shutting down with an active request")
		g.arena.Release()
		g.arena = nil
	}
	if g.callCache != nil {
		g.callCache.Clear()
		g.callCache = nil
	}
	g.initialized = false
	g.cacheEnabled = false
	g.recursionDepth = 0
	g.recursionLimit = 0
}

// Initialized returns true once InitializeProcess has completed.
func (g *Globals) Initialized() bool {
	return g.initialized
}

// CacheEnabled reports whether Resolve consults the call cache.
func (g *Globals) CacheEnabled() bool {
	return g.cacheEnabled
}

// RecursionDepth returns the current nesting of guarded calls.
func (g *Globals) RecursionDepth() uint32 {
	return g.recursionDepth
}

// RecursionLimit returns the nesting ceiling.
func (g *Globals) RecursionLimit() uint32 {
	return g.recursionLimit
}

// RequestActive returns true while an arena is attached.
func (g *Globals) RequestActive() bool {
	return g.arena != nil
}

// Arena returns the arena of the current request, or nil between requests.
func (g *Globals) Arena() *arena.Arena {
	return g.arena
}

// CallCache returns the call cache, or nil before InitializeProcess.
func (g *Globals) CallCache() *CallCache {
	return g.callCache
}

// Stats summarizes the activity of a Globals.
type Stats struct {
	Initialized   bool          `json:"initialized"`
	CacheEnabled  bool          `json:"cache_enabled"`
	Requests      uint64        `json:"requests"`
	RecursionPeak uint32        `json:"recursion_peak"`
	CacheLen      int           `json:"cache_len"`
	Cache         CacheStats    `json:"cache"`
	LastArena     arena.Metrics `json:"last_arena"`
}

// Stats returns a snapshot of the state. Like every other method, it must be called by the owning
// worker.
func (g *Globals) Stats() Stats {
	stats := Stats{
		Initialized:   g.initialized,
		CacheEnabled:  g.cacheEnabled,
		Requests:      g.requests,
		RecursionPeak: g.recursionPeak,
		LastArena:     g.lastArena,
	}
	if g.callCache != nil {
		stats.CacheLen = g.callCache.Len()
		stats.Cache = g.callCache.Stats()
	}
	return stats
}
