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
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/kernel"
)

// ModuleEntry describes a module to the host.
type ModuleEntry struct {
	Name    string
	Version string

	// Classes registered on load
	Classes []*Class

	// (Optional) Called on load before classes are registered.
	Startup func() error

	// (Optional) Called on unload after all threads have stopped.
	Shutdown func() error
}

// Config specifies the per-thread settings used by a Manager.
type Config struct {
	Kernel kernel.Config
}

// Manager drives the process-level part of the lifecycle and hands out Threads.
type Manager struct {
	entry    *ModuleEntry
	config   Config
	logger   zerolog.Logger
	registry *Registry

	mutex   sync.Mutex
	state   State
	threads map[*Thread]struct{}
}

// NewManager creates a manager for the given module. The module starts Unloaded.
func NewManager(entry *ModuleEntry, config Config, logger zerolog.Logger) *Manager {
	return &Manager{
		entry:    entry,
		config:   config,
		logger:   logger,
		registry: NewRegistry(),
		state:    StateUnloaded,
		threads:  map[*Thread]struct{}{},
	}
}

// Entry returns the module served by the manager.
func (m *Manager) Entry() *ModuleEntry {
	return m.entry
}

// Registry returns the registry that holds the classes of the module while it is loaded.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// State returns StateUnloaded or StateProcessReady.
func (m *Manager) State() State {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state
}

// Threads returns the threads that have been started and not yet stopped.
func (m *Manager) Threads() []*Thread {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	threads := make([]*Thread, 0, len(m.threads))
	for t := range m.threads {
		threads = append(threads, t)
	}
	return threads
}

func (m *Manager) validate() error {
	const op = failure.Op("lifecycle.Load")
	if m.entry == nil || m.entry.Name == "" {
		return failure.New("module entry must have a name", op, failure.ErrKindConfig)
	}
	if m.config.Kernel.CacheSlots < 0 {
		return failure.New(fmt.Sprintf("invalid number of cache slots %d", m.config.Kernel.CacheSlots), op,
			failure.ErrKindConfig)
	}
	if m.config.Kernel.Arena.ChunkSize < 0 || m.config.Kernel.Arena.Limit < 0 || m.config.Kernel.Arena.MaxDepth < 0 {
		return failure.New("arena settings must not be negative", op, failure.ErrKindConfig)
	}
	return nil
}

// Load brings the module from Unloaded to ProcessReady. Either the whole module is registered or,
// on error, nothing is.
func (m *Manager) Load() error {
	const op = failure.Op("lifecycle.Load")

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state != StateUnloaded {
		return failure.New("module is already loaded", op, failure.ErrKindLifecycle)
	}

	if err := m.validate(); err != nil {
		return err
	}

	if m.entry.Startup != nil {
		if err := m.entry.Startup(); err != nil {
			return failure.New(fmt.Sprintf(`startup of module "%s" failed`, m.entry.Name), op, err)
		}
	}

	registered := make([]string, 0, len(m.entry.Classes))
	for _, class := range m.entry.Classes {
		if err := m.registry.Register(class); err != nil {
			for _, name := range registered {
				m.registry.Unregister(name)
			}
			if m.entry.Shutdown != nil {
				if shutdownErr := m.entry.Shutdown(); shutdownErr != nil {
					m.logger.Warn().Err(shutdownErr).Msg("shutdown after failed load")
				}
			}
			return failure.New(fmt.Sprintf(`cannot load module "%s"`, m.entry.Name), op, err)
		}
		registered = append(registered, class.Name)
	}

	m.state = StateProcessReady
	m.logger.Info().
		Str("module", m.entry.Name).
		Str("version", m.entry.Version).
		Int("classes", len(registered)).
		Msg("module loaded")
	return nil
}

// StartThread constructs and initializes the global state for a new worker. The returned Thread
// must only be used by the goroutine that serves its requests.
func (m *Manager) StartThread() (*Thread, error) {
	const op = failure.Op("lifecycle.StartThread")

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state != StateProcessReady {
		return nil, failure.New(fmt.Sprintf("cannot start a thread in state %s", m.state), op,
			failure.ErrKindLifecycle)
	}

	t := newThread(m)
	if err := t.globals.InitializeProcess(); err != nil {
		return nil, failure.New("cannot initialize thread", op, err)
	}
	t.publishStats(StateThreadReady)
	t.state.Store(int32(StateThreadReady))

	m.threads[t] = struct{}{}
	t.logger.Debug().Msg("thread started")
	return t, nil
}

func (m *Manager) forgetThread(t *Thread) {
	m.mutex.Lock()
	delete(m.threads, t)
	m.mutex.Unlock()
}

// Unload stops every remaining thread, runs the shutdown hook and unregisters the classes of the
// module. Stopped threads release their global state on their owner's next BeginRequest or Stop. It fails without unloading if a thread is still serving a request. Unloading an unloaded
// module does nothing.
func (m *Manager) Unload() error {
	const op = failure.Op("lifecycle.Unload")

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state == StateUnloaded {
		return nil
	}

	for t := range m.threads {
		if err := t.stop(); err != nil {
			return failure.New(fmt.Sprintf(`cannot unload module "%s"`, m.entry.Name), op, err)
		}
		delete(m.threads, t)
	}

	if m.entry.Shutdown != nil {
		if err := m.entry.Shutdown(); err != nil {
			m.logger.Warn().Err(err).Str("module", m.entry.Name).Msg("module shutdown failed")
		}
	}

	for _, class := range m.entry.Classes {
		m.registry.Unregister(class.Name)
	}

	m.state = StateUnloaded
	m.logger.Info().Str("module", m.entry.Name).Msg("module unloaded")
	return nil
}
