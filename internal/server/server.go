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

package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"

	"github.com/botobag/graphqlext/concurrent"
	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/graphql"
	"github.com/botobag/graphqlext/graphql/gqlerror"
	"github.com/botobag/graphqlext/lifecycle"
)

// DefaultCallTimeout bounds the time a call waits for a worker and runs.
const DefaultCallTimeout = 30 * time.Second

// Config specifies the collaborators of a Server.
type Config struct {
	// Manager of the loaded module (required)
	Manager *lifecycle.Manager

	// Pool that executes calls (required)
	Pool *concurrent.WorkerPool

	// (Optional) Defaults to DefaultCallTimeout.
	CallTimeout time.Duration

	// (Optional) Defaults to DefaultErrorPresenter.
	ErrorPresenter ErrorPresenter

	Logger zerolog.Logger
}

// Server routes HTTP requests to the module.
type Server struct {
	config         Config
	router         *mux.Router
	errorPresenter ErrorPresenter
	logger         zerolog.Logger
}

var _ http.Handler = (*Server)(nil)

// New creates a Server.
func New(config Config) (*Server, error) {
	const op = failure.Op("server.New")
	if config.Manager == nil || config.Pool == nil {
		return nil, failure.New("server requires a manager and a worker pool", op, failure.ErrKindConfig)
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultCallTimeout
	}

	s := &Server{
		config: config,
		router: mux.NewRouter(),
		logger: config.Logger,
	}
	s.errorPresenter = config.ErrorPresenter
	if s.errorPresenter == nil {
		s.errorPresenter = DefaultErrorPresenter{Logger: config.Logger}
	}

	r := s.router
	r.HandleFunc("/graphql/version", s.methodHandler(graphql.ClassName, graphql.MethodVersion)).Methods(http.MethodGet)
	r.HandleFunc("/graphql/error/version", s.methodHandler(gqlerror.ClassName, graphql.MethodVersion)).Methods(http.MethodGet)
	r.HandleFunc("/classes", s.listClasses).Methods(http.MethodGet)
	r.HandleFunc("/call/{class}/{method}", s.call).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/stats", s.stats).Methods(http.MethodGet)

	return s, nil
}

// Router returns the underlying router so callers can mount additional routes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Call runs class::method on the worker pool and waits for the result.
func (s *Server) Call(ctx context.Context, class, method string) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()

	return s.config.Pool.Execute(ctx, concurrent.RequestTaskFunc(func(request *lifecycle.Request) (interface{}, error) {
		s.logger.Debug().
			Str("request", request.ID().String()).
			Str("class", class).
			Str("method", method).
			Msg("call")
		return request.Call(class, method)
	}))
}

type callResult struct {
	Class  string      `json:"class"`
	Method string      `json:"method"`
	Result interface{} `json:"result"`
}

func (s *Server) serveCall(w http.ResponseWriter, r *http.Request, class, method string) {
	result, err := s.Call(r.Context(), class, method)
	if err != nil {
		s.errorPresenter.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, callResult{
		Class:  class,
		Method: method,
		Result: result,
	}, s.logger)
}

func (s *Server) methodHandler(class, method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveCall(w, r, class, method)
	}
}

func (s *Server) call(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.serveCall(w, r, vars["class"], vars["method"])
}

type classesRsp struct {
	Module  string   `json:"module"`
	Version string   `json:"version"`
	Classes []string `json:"classes"`
}

func (s *Server) listClasses(w http.ResponseWriter, _ *http.Request) {
	entry := s.config.Manager.Entry()
	writeJSON(w, http.StatusOK, classesRsp{
		Module:  entry.Name,
		Version: entry.Version,
		Classes: s.config.Manager.Registry().Names(),
	}, s.logger)
}

// ProcessStats describes resource usage of the host process.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

// Stats is the body of the /stats endpoint.
type Stats struct {
	Module  string                  `json:"module"`
	State   string                  `json:"state"`
	Threads []lifecycle.ThreadStats `json:"threads"`
	Process *ProcessStats           `json:"process,omitempty"`
}

func (s *Server) processStats() (*ProcessStats, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return nil, err
	}

	memory, err := p.MemoryInfo()
	if err != nil {
		return nil, err
	}

	return &ProcessStats{
		PID:        p.Pid,
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	}, nil
}

// CollectStats gathers the published snapshots of every thread and the resource usage of the
// process.
func (s *Server) CollectStats() Stats {
	manager := s.config.Manager
	threads := manager.Threads()

	stats := Stats{
		Module:  manager.Entry().Name,
		State:   manager.State().String(),
		Threads: make([]lifecycle.ThreadStats, 0, len(threads)),
	}
	for _, thread := range threads {
		stats.Threads = append(stats.Threads, thread.Stats())
	}

	processStats, err := s.processStats()
	if err != nil {
		s.logger.Warn().Err(err).Msg("cannot collect process stats")
	} else {
		stats.Process = processStats
	}
	return stats
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.CollectStats(), s.logger)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.logger.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errCh:
		return failure.New("server stopped", failure.Op("server.ListenAndServe"), err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return failure.New("cannot shut down server", failure.Op("server.ListenAndServe"), err)
		}
		s.logger.Info().Msg("server stopped")
		return nil
	}
}
