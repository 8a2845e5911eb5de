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

package lifecycle_test

import (
	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/internal/testutil"
	"github.com/botobag/graphqlext/kernel"
	"github.com/botobag/graphqlext/lifecycle"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func constantMethod(value interface{}) lifecycle.Method {
	return func(request *lifecycle.Request, this interface{}, args ...interface{}) (interface{}, error) {
		return value, nil
	}
}

var _ = Describe("Registry", func() {
	var registry *lifecycle.Registry

	BeforeEach(func() {
		registry = lifecycle.NewRegistry()
	})

	It("registers and looks up classes", func() {
		Expect(registry.Register(&lifecycle.Class{Name: `A\B`})).Should(Succeed())
		Expect(registry.Register(&lifecycle.Class{Name: `A\A`})).Should(Succeed())

		class, ok := registry.Lookup(`A\B`)
		Expect(ok).Should(BeTrue())
		Expect(class.Name).Should(Equal(`A\B`))

		_, ok = registry.Lookup(`A\C`)
		Expect(ok).Should(BeFalse())

		Expect(registry.Names()).Should(Equal([]string{`A\A`, `A\B`}))
		Expect(registry.Len()).Should(Equal(2))
	})

	It("rejects duplicate and unnamed classes", func() {
		Expect(registry.Register(&lifecycle.Class{Name: "X"})).Should(Succeed())
		Expect(registry.Register(&lifecycle.Class{Name: "X"})).Should(testutil.MatchFailure(
			testutil.MessageContainSubstring("already registered"),
			testutil.KindIs(failure.ErrKindConfig),
		))
		Expect(registry.Register(&lifecycle.Class{})).ShouldNot(Succeed())
		Expect(registry.Register(nil)).ShouldNot(Succeed())
	})

	It("unregisters classes", func() {
		Expect(registry.Register(&lifecycle.Class{Name: "X"})).Should(Succeed())
		Expect(registry.Unregister("X")).Should(BeTrue())
		Expect(registry.Unregister("X")).Should(BeFalse())
		Expect(registry.Len()).Should(Equal(0))
	})

	It("resolves call sites to methods", func() {
		Expect(registry.Register(&lifecycle.Class{
			Name: `GraphQL\GraphQL`,
			Methods: map[string]lifecycle.Method{
				"version": constantMethod("1.0"),
			},
		})).Should(Succeed())

		target, err := registry.Resolve(kernel.MakeCallSite(`GraphQL\GraphQL`, "version"))
		Expect(err).ShouldNot(HaveOccurred())
		bound, ok := target.(*lifecycle.BoundMethod)
		Expect(ok).Should(BeTrue())
		Expect(bound.Name).Should(Equal("version"))
		Expect(bound.Class.Name).Should(Equal(`GraphQL\GraphQL`))

		Expect(bound.Invoke(nil)).Should(Equal("1.0"))
	})

	It("reports unknown classes and methods as not found", func() {
		Expect(registry.Register(&lifecycle.Class{Name: "X"})).Should(Succeed())

		_, err := registry.Method("Y", "version")
		Expect(err).Should(testutil.MatchFailure(
			testutil.MessageEqual(`class "Y" does not exist. Did you mean "X"?`),
			testutil.KindIs(failure.ErrKindNotFound),
		))

		_, err = registry.Method("X", "version")
		Expect(err).Should(testutil.MatchFailure(
			testutil.MessageEqual("call to undefined method X::version()"),
			testutil.KindIs(failure.ErrKindNotFound),
		))

		_, err = registry.Method("Z", "version")
		Expect(err).Should(testutil.MatchFailure(
			testutil.MessageEqual(`class "Z" does not exist. Did you mean "X"?`),
		))

		_, err = registry.Resolve(kernel.CallSite("version"))
		Expect(failure.Is(err, failure.ErrKindNotFound)).Should(BeTrue())
	})

	It("suggests methods with similar names", func() {
		Expect(registry.Register(&lifecycle.Class{
			Name: `GraphQL\GraphQL`,
			Methods: map[string]lifecycle.Method{
				"version": constantMethod("1.0"),
			},
		})).Should(Succeed())

		_, err := registry.Method(`GraphQL\GraphQL`, "Version")
		Expect(err).Should(testutil.MatchFailure(
			testutil.MessageEqual(`call to undefined method GraphQL\GraphQL::Version(). Did you mean "version"?`),
			testutil.KindIs(failure.ErrKindNotFound),
		))

		_, err = registry.Method(`GraphQL\Graphql`, "version")
		Expect(err).Should(testutil.MatchFailure(
			testutil.MessageEqual(`class "GraphQL\Graphql" does not exist. Did you mean "GraphQL\GraphQL"?`),
		))
	})

	It("passes a new receiver to every invocation", func() {
		type counter struct{ n int }
		class := &lifecycle.Class{
			Name: "Counter",
			New:  func() interface{} { return &counter{} },
			Methods: map[string]lifecycle.Method{
				"incr": func(request *lifecycle.Request, this interface{}, args ...interface{}) (interface{}, error) {
					c := this.(*counter)
					c.n++
					return c.n, nil
				},
			},
		}
		Expect(registry.Register(class)).Should(Succeed())

		bound, err := registry.Method("Counter", "incr")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(bound.Invoke(nil)).Should(Equal(1))
		Expect(bound.Invoke(nil)).Should(Equal(1))
	})
})
