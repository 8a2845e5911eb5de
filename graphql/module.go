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

package graphql

import (
	"github.com/botobag/graphqlext/graphql/gqlerror"
	"github.com/botobag/graphqlext/lifecycle"
)

// Name and version of the module
const (
	ModuleName    = "graphql"
	ModuleVersion = "0.0.1"
)

// MethodVersion is the name of the version method on both classes.
const MethodVersion = "version"

// Module returns the entry of the graphql module. Each call returns a new entry.
func Module() *lifecycle.ModuleEntry {
	return &lifecycle.ModuleEntry{
		Name:    ModuleName,
		Version: ModuleVersion,
		Classes: []*lifecycle.Class{
			{
				Name: ClassName,
				New:  func() interface{} { return &GraphQL{} },
				Methods: map[string]lifecycle.Method{
					MethodVersion: func(request *lifecycle.Request, this interface{}, args ...interface{}) (interface{}, error) {
						return this.(*GraphQL).Version(), nil
					},
				},
			},
			{
				Name: gqlerror.ClassName,
				New:  func() interface{} { return &gqlerror.Error{} },
				Methods: map[string]lifecycle.Method{
					MethodVersion: func(request *lifecycle.Request, this interface{}, args ...interface{}) (interface{}, error) {
						return this.(*gqlerror.Error).Version(), nil
					},
				},
			},
		},
	}
}
