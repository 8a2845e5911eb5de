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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/botobag/graphqlext/concurrent"
	"github.com/botobag/graphqlext/internal/logging"
	"github.com/botobag/graphqlext/internal/server"
)

func newServeCommand(h *host) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the module over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = h.config.Addr
			}
			return h.serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default from configuration)")
	return cmd
}

func (h *host) serve(ctx context.Context, addr string) error {
	manager, err := h.loadModule()
	if err != nil {
		return err
	}

	var pool *concurrent.WorkerPool
	h.unloadAtExit(manager, &pool)

	pool, err = concurrent.NewWorkerPool(concurrent.WorkerPoolConfig{
		Manager: manager,
		Workers: uint32(h.config.Workers),
		Logger:  logging.Component(h.logger, "pool"),
	})
	if err != nil {
		return err
	}

	s, err := server.New(server.Config{
		Manager: manager,
		Pool:    pool,
		Logger:  logging.Component(h.logger, "server"),
	})
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.ListenAndServe(ctx, addr)
}
