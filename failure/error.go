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

package failure

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
	"unsafe"

	"github.com/json-iterator/go"
)

// Op describes an operation, usually as the package and method, such as "arena.PopFrame".
type Op string

// ErrKind defines the kind of error this is.
type ErrKind uint8

// Enumeration of ErrKind
const (
	ErrKindOther                  ErrKind = iota // Unclassified error. This value is not printed in the error message.
	ErrKindOutOfMemory                           // The arena cannot provide the requested memory.
	ErrKindImbalancedFrameStack                  // A frame was popped when no frame was active.
	ErrKindRecursionLimitExceeded                // Call nesting exceeded the configured ceiling.
	ErrKindLifecycle                             // An operation was attempted in the wrong lifecycle state.
	ErrKindConfig                                // Invalid configuration.
	ErrKindNotFound                              // Unknown class or method.
	ErrKindInternal                              // Internal error
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindOther:
		return "other error"
	case ErrKindOutOfMemory:
		return "out of memory"
	case ErrKindImbalancedFrameStack:
		return "imbalanced frame stack"
	case ErrKindRecursionLimitExceeded:
		return "recursion limit exceeded"
	case ErrKindLifecycle:
		return "lifecycle error"
	case ErrKindConfig:
		return "configuration error"
	case ErrKindNotFound:
		return "not found"
	case ErrKindInternal:
		return "internal error"
	}
	return "unknown error kind"
}

// An Error describes a failure in the runtime core. Information from a wrapped *Error (such as
// Kind) is propagated to the new one when it is not given explicitly, so the kind assigned at the
// point of failure survives every layer that adds context on the way to the request boundary.
type Error struct {
	// Message describes the error for debugging purposes.
	Message string

	// The underlying error that triggered this one
	Err error

	// Op is the operation being performed, usually the name of the method being invoked.
	Op Op

	// Kind is the class of error
	Kind ErrKind
}

var _ error = (*Error)(nil)

// New builds an error value from arguments. Inspired by the design of upspin.io/errors [0].
// Accepted arguments are Op, ErrKind and error.
//
// [0]: https://commandcenter.blogspot.com/2017/12/error-handling-in-upspin.html.
func New(message string, args ...interface{}) error {
	e := &Error{
		Message: message,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case error:
			e.Err = arg

		case Op:
			e.Op = arg

		case ErrKind:
			e.Kind = arg

		default:
			_, file, line, _ := runtime.Caller(1)
			log.Printf("failure.New: bad call from %s:%d: %v", file, line, args)
			return fmt.Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}

	// Pull kind from underlying error.
	if e.Kind == ErrKindOther && e.Err != nil {
		var prev *Error
		if errors.As(e.Err, &prev) {
			e.Kind = prev.Kind
		}
	}

	return e
}

// Wrap is a convenient wrapper to build an Error value from an underlying error with a message.
func Wrap(err error, message string) error {
	return New(message, err)
}

// Wrapf is similar to Wrap but with the format specifier.
func Wrapf(err error, format string, args ...interface{}) error {
	return New(fmt.Sprintf(format, args...), err)
}

// KindOf returns the kind of the outermost *Error in err's chain, or ErrKindOther if there is
// none.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindOther
}

// Is returns true if err is classified as the given kind.
func Is(err error, kind ErrKind) bool {
	return err != nil && KindOf(err) == kind
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error implements Go's error interface.
func (e *Error) Error() string {
	var b strings.Builder
	e.printError(&b, nil)
	return b.String()
}

func (e *Error) printError(b *strings.Builder, nextErr *Error) {
	initialLen := b.Len()

	// pad appends str to the buffer if the buffer already has some data.
	pad := func(str string) {
		if b.Len() == initialLen {
			return
		}
		b.WriteString(str)
	}

	if len(e.Op) > 0 {
		b.WriteString(string(e.Op))
	}

	if len(e.Message) > 0 {
		pad(": ")
		b.WriteString(e.Message)
	}

	if e.Kind != ErrKindOther {
		// Don't print kind if the next error has the same kind as ours.
		if nextErr == nil || nextErr.Kind != e.Kind {
			pad(": ")
			b.WriteString(e.Kind.String())
		}
	}

	if e.Err != nil {
		if prev, ok := e.Err.(*Error); ok {
			// Indent on new line if we are cascading non-empty Error.
			pad(":\n  ")
			prev.printError(b, e)
		} else {
			pad(": ")
			b.WriteString(e.Err.Error())
		}
	}
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(e)
}

// errorMarshaller implements jsoniter.ValEncoder to encode Error to JSON.
type errorMarshaller struct{}

var _ jsoniter.ValEncoder = errorMarshaller{}

// IsEmpty implements jsoniter.ValEncoder.
func (errorMarshaller) IsEmpty(ptr unsafe.Pointer) bool {
	return (*Error)(ptr) == nil
}

// Encode implements jsoniter.ValEncoder.
func (errorMarshaller) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	err := (*Error)(ptr)
	stream.WriteObjectStart()

	stream.WriteObjectField("message")
	stream.WriteString(err.Error())

	if err.Kind != ErrKindOther {
		stream.WriteMore()
		stream.WriteObjectField("kind")
		stream.WriteString(err.Kind.String())
	}

	if len(err.Op) > 0 {
		stream.WriteMore()
		stream.WriteObjectField("op")
		stream.WriteString(string(err.Op))
	}

	stream.WriteObjectEnd()
}

func init() {
	jsoniter.RegisterTypeEncoder("failure.Error", errorMarshaller{})
}
