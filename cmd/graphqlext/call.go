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
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/botobag/graphqlext/lifecycle"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type callOutput struct {
	Result interface{}            `json:"result"`
	Stats  *lifecycle.ThreadStats `json:"stats,omitempty"`
}

func newCallCommand(h *host) *cobra.Command {
	var (
		repeat    int
		showStats bool
	)

	cmd := &cobra.Command{
		Use:   "call <class> <method>",
		Short: "Call a method of the module and print the result as JSON",
		Example: `  graphqlext call 'GraphQL\GraphQL' version
  graphqlext call 'GraphQL\Error\Error' version --repeat 3 --stats`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if repeat < 1 {
				return fmt.Errorf("--repeat must be at least 1, got %d", repeat)
			}

			output, err := h.call(cmd.Context(), args[0], args[1], repeat)
			if err != nil {
				return err
			}
			if !showStats {
				output.Stats = nil
			}

			encoded, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return err
		},
	}
	cmd.Flags().IntVar(&repeat, "repeat", 1, "number of requests to run the call in")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print thread statistics after the calls")
	return cmd
}

// call runs class::method in repeat consecutive requests on a single thread.
func (h *host) call(ctx context.Context, class, method string, repeat int) (*callOutput, error) {
	manager, err := h.loadModule()
	if err != nil {
		return nil, err
	}

	h.unloadAtExit(manager, nil)

	thread, err := manager.StartThread()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := thread.Stop(); err != nil {
			h.logger.Warn().Err(err).Msg("cannot stop thread")
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}

	output := &callOutput{}
	for i := 0; i < repeat; i++ {
		err := thread.Do(ctx, func(request *lifecycle.Request) error {
			result, err := request.Call(class, method)
			if err != nil {
				return err
			}
			output.Result = result
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	stats := thread.Stats()
	output.Stats = &stats
	return output, nil
}
