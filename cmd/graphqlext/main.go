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

// Command graphqlext hosts the graphql extension module.
//
//	graphqlext serve                        serve the module over HTTP
//	graphqlext call 'GraphQL\GraphQL' version  call a method once
//	graphqlext version                      print version information
package main

import (
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	code := 0
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		code = 1
	}
	// Runs the registered cleanup handlers before exiting.
	atexit.Exit(code)
}
