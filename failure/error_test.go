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

package failure_test

import (
	"errors"
	"fmt"

	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/internal/testutil"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Error", func() {
	It("accepts op, kind and an underlying error", func() {
		cause := errors.New("boom")
		err := failure.New("cannot grow", failure.Op("arena.Allocate"), failure.ErrKindOutOfMemory, cause)

		e, ok := err.(*failure.Error)
		Expect(ok).Should(BeTrue())
		Expect(e.Op).Should(Equal(failure.Op("arena.Allocate")))
		Expect(e.Kind).Should(Equal(failure.ErrKindOutOfMemory))
		Expect(e.Err).Should(Equal(cause))
		Expect(errors.Is(err, cause)).Should(BeTrue())
		Expect(err.Error()).Should(Equal("arena.Allocate: cannot grow: out of memory: boom"))
	})

	It("rejects unsupported arguments", func() {
		err := failure.New("bad", 42)
		_, ok := err.(*failure.Error)
		Expect(ok).Should(BeFalse())
		Expect(err.Error()).Should(ContainSubstring("unknown type int"))
	})

	It("pulls kind from the wrapped error", func() {
		inner := failure.New("too deep", failure.ErrKindRecursionLimitExceeded)
		outer := failure.Wrap(inner, "call GraphQL\\GraphQL::version")
		Expect(failure.KindOf(outer)).Should(Equal(failure.ErrKindRecursionLimitExceeded))
		Expect(failure.Is(outer, failure.ErrKindRecursionLimitExceeded)).Should(BeTrue())
	})

	It("does not repeat the kind of a cascaded error", func() {
		inner := failure.New("limit reached", failure.Op("kernel.EnterCall"), failure.ErrKindRecursionLimitExceeded)
		outer := failure.New("call failed", failure.Op("lifecycle.Call"), inner)
		Expect(outer.Error()).Should(Equal(
			"lifecycle.Call: call failed: recursion limit exceeded:\n  kernel.EnterCall: limit reached"))
	})

	It("classifies foreign errors as other", func() {
		Expect(failure.KindOf(errors.New("plain"))).Should(Equal(failure.ErrKindOther))
		Expect(failure.KindOf(fmt.Errorf("wrapped: %w", failure.New("x", failure.ErrKindConfig)))).
			Should(Equal(failure.ErrKindConfig))
		Expect(failure.Is(nil, failure.ErrKindOther)).Should(BeFalse())
	})

	It("formats with Wrapf", func() {
		err := failure.Wrapf(errors.New("eof"), "read %s", "config.toml")
		Expect(err.Error()).Should(Equal("read config.toml: eof"))
	})

	It("serializes to JSON", func() {
		err := failure.New("no frame to pop", failure.Op("arena.PopFrame"), failure.ErrKindImbalancedFrameStack)
		Expect(err).Should(testutil.SerializeToJSONAs(map[string]interface{}{
			"message": "arena.PopFrame: no frame to pop: imbalanced frame stack",
			"kind":    "imbalanced frame stack",
			"op":      "arena.PopFrame",
		}))
	})
})
