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
	"sort"
	"strings"
	"sync"

	"github.com/botobag/graphqlext/failure"
	"github.com/botobag/graphqlext/internal/util"
	"github.com/botobag/graphqlext/kernel"
)

// Method implements a method of a class. this is the receiver created by Class.New (nil if the
// class has no constructor).
type Method func(request *Request, this interface{}, args ...interface{}) (interface{}, error)

// Class describes a type exposed by a module.
type Class struct {
	// Fully qualified name such as `GraphQL\GraphQL`
	Name string

	// (Optional) Creates the receiver for a method call.
	New func() interface{}

	// Methods by name
	Methods map[string]Method
}

// BoundMethod is the target cached for a call site.
type BoundMethod struct {
	Class  *Class
	Name   string
	Method Method
}

// Invoke calls the method on a new receiver.
func (m *BoundMethod) Invoke(request *Request, args ...interface{}) (interface{}, error) {
	var this interface{}
	if m.Class.New != nil {
		this = m.Class.New()
	}
	return m.Method(request, this, args...)
}

// Registry holds the classes of loaded modules. It is written while a module loads or unloads and
// read concurrently by every worker in between.
type Registry struct {
	mutex   sync.RWMutex
	classes map[string]*Class
}

var _ kernel.Resolver = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: map[string]*Class{},
	}
}

// Register adds a class. Registering a name twice is an error.
func (registry *Registry) Register(class *Class) error {
	const op = failure.Op("lifecycle.Registry.Register")
	if class == nil || class.Name == "" {
		return failure.New("class must have a name", op, failure.ErrKindConfig)
	}

	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if _, exists := registry.classes[class.Name]; exists {
		return failure.New(fmt.Sprintf(`class "%s" is already registered`, class.Name), op,
			failure.ErrKindConfig)
	}
	registry.classes[class.Name] = class
	return nil
}

// Unregister removes the class with the given name. Returns false if there was none.
func (registry *Registry) Unregister(name string) bool {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if _, exists := registry.classes[name]; !exists {
		return false
	}
	delete(registry.classes, name)
	return true
}

// Lookup returns the class with the given name.
func (registry *Registry) Lookup(name string) (*Class, bool) {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	class, ok := registry.classes[name]
	return class, ok
}

// Names returns the names of all registered classes in sorted order.
func (registry *Registry) Names() []string {
	registry.mutex.RLock()
	names := make([]string, 0, len(registry.classes))
	for name := range registry.classes {
		names = append(names, name)
	}
	registry.mutex.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered classes.
func (registry *Registry) Len() int {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	return len(registry.classes)
}

// Method looks up a method of a registered class.
func (registry *Registry) Method(className, methodName string) (*BoundMethod, error) {
	const op = failure.Op("lifecycle.Registry.Method")
	class, ok := registry.Lookup(className)
	if !ok {
		return nil, failure.New(
			withHint(fmt.Sprintf(`class "%s" does not exist`, className), util.DidYouMean(className, registry.Names())),
			op, failure.ErrKindNotFound)
	}

	method, ok := class.Methods[methodName]
	if !ok {
		names := make([]string, 0, len(class.Methods))
		for name := range class.Methods {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, failure.New(
			withHint(fmt.Sprintf("call to undefined method %s::%s()", className, methodName), util.DidYouMean(methodName, names)),
			op, failure.ErrKindNotFound)
	}

	return &BoundMethod{
		Class:  class,
		Name:   methodName,
		Method: method,
	}, nil
}

func withHint(message, hint string) string {
	if len(hint) == 0 {
		return message
	}
	return message + "." + hint
}

// Resolve implements kernel.Resolver. It resolves call sites made by kernel.MakeCallSite to a
// *BoundMethod.
func (registry *Registry) Resolve(site kernel.CallSite) (interface{}, error) {
	s := string(site)
	sep := strings.LastIndex(s, "::")
	if sep < 0 {
		return nil, failure.New(fmt.Sprintf(`malformed call site "%s"`, s),
			failure.Op("lifecycle.Registry.Resolve"), failure.ErrKindNotFound)
	}
	return registry.Method(s[:sep], s[sep+2:])
}
