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

// Package graphql is the graphql extension module. It exposes two classes, `GraphQL\GraphQL` and
// `GraphQL\Error\Error`, each with a version method.
//
// Module returns the entry to hand to a lifecycle.Manager:
//
//	manager := lifecycle.NewManager(graphql.Module(), config, logger)
//	if err := manager.Load(); err != nil {
//		...
//	}
//	thread, err := manager.StartThread()
//	...
//	err = thread.Do(ctx, func(request *lifecycle.Request) error {
//		version, err := request.Call(graphql.ClassName, graphql.MethodVersion)
//		...
//	})
//
// The module does not parse, validate or execute GraphQL documents.
package graphql
