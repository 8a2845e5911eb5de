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
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/botobag/graphqlext/concurrent"
	"github.com/botobag/graphqlext/graphql"
	"github.com/botobag/graphqlext/internal/config"
	"github.com/botobag/graphqlext/internal/logging"
	"github.com/botobag/graphqlext/lifecycle"
)

const appName = "graphqlext"

// options holds the persistent flags shared by every command.
type options struct {
	configPath string
	envFiles   []string
	logLevel   string
	logJSON    bool
}

// host is the state set up by the persistent pre-run of the root command.
type host struct {
	config config.Config
	logger zerolog.Logger
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	h := &host{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Host for the graphql extension module.",
		Long: `graphqlext loads the graphql extension module, runs requests against it on a pool ` +
			`of workers and exposes it over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return h.setup(opts, stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a TOML configuration file")
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files to load")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")
	flags.BoolVar(&opts.logJSON, "log-json", false, "write logs as JSON lines")

	rootCmd.AddCommand(
		newServeCommand(h),
		newCallCommand(h),
		newVersionCommand(),
	)
	return rootCmd
}

// setup loads the configuration and builds the logger. Levels are taken from, in increasing
// precedence, the configuration file, the environment and the command line.
func (h *host) setup(opts *options, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath, opts.envFiles...)
	if err != nil {
		return err
	}
	h.config = cfg

	logConfig := logging.DefaultConfig()
	logConfig.Output = stderr
	if level, ok := logging.ParseLevel(cfg.LogLevel); ok && !envLevelSet() {
		logConfig.Level = level
	}
	if level, ok := logging.ParseLevel(opts.logLevel); ok {
		logConfig.Level = level
	}
	if opts.logJSON {
		logConfig.JSON = true
	}
	h.logger = logging.New(logConfig, appName)
	return nil
}

func envLevelSet() bool {
	_, ok := logging.ParseLevel(os.Getenv(logging.EnvLogLevel))
	return ok
}

// loadModule loads the graphql module. The caller registers the exit handler with unloadAtExit once it
// knows who owns the threads.
func (h *host) loadModule() (*lifecycle.Manager, error) {
	manager := lifecycle.NewManager(
		graphql.Module(),
		h.config.Lifecycle(),
		logging.Component(h.logger, "lifecycle"))
	if err := manager.Load(); err != nil {
		return nil, err
	}
	return manager, nil
}

// unloadAtExit registers the single exit handler of the host. atexit runs handlers in no particular
// order, so pool shutdown and module unload share one handler. pool is read when the handler runs and
// may be nil when no pool owns the threads.
func (h *host) unloadAtExit(manager *lifecycle.Manager, pool **concurrent.WorkerPool) {
	atexit.Register(func() {
		var p *concurrent.WorkerPool
		if pool != nil {
			p = *pool
		}
		h.shutdown(manager, p)
	})
}

// shutdown drains pool, so every worker stops its own thread, and then unloads the module.
func (h *host) shutdown(manager *lifecycle.Manager, pool *concurrent.WorkerPool) {
	if pool != nil {
		terminated, err := pool.Shutdown()
		if err != nil {
			h.logger.Error().Err(err).Msg("cannot shut down worker pool")
		} else {
			<-terminated
		}
	}

	if err := manager.Unload(); err != nil {
		h.logger.Error().Err(err).Msg("cannot unload module")
	}
}
