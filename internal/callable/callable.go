// Package callable is a closed set of invocable shapes used where handlers
// are registered by name: plain named functions, methods bound to a receiver,
// type-qualified functions and anonymous closures.
package callable

import (
	"fmt"
	"reflect"
	"strings"
)

// Callable is implemented only by the variants in this package.
type Callable[In, Out any] interface {
	// Describe names the target for logs and diagnostics.
	Describe() string
	// Invoke calls the target.
	Invoke(In) Out

	sealed()
}

// NamedFunction is a package-level function registered under a name.
type NamedFunction[In, Out any] struct {
	Name string
	Fn   func(In) Out
}

func (f NamedFunction[In, Out]) Describe() string { return f.Name }
func (f NamedFunction[In, Out]) Invoke(in In) Out { return f.Fn(in) }
func (NamedFunction[In, Out]) sealed()            {}

// BoundMethod is a method value together with the receiver it is bound to.
type BoundMethod[In, Out any] struct {
	Receiver any
	Method   string
	Fn       func(In) Out
}

func (m BoundMethod[In, Out]) Describe() string {
	return fmt.Sprintf("(%s).%s", receiverType(m.Receiver), m.Method)
}
func (m BoundMethod[In, Out]) Invoke(in In) Out { return m.Fn(in) }
func (BoundMethod[In, Out]) sealed()            {}

// StaticMethod is a function qualified by the type it belongs to.
type StaticMethod[In, Out any] struct {
	Type   string
	Method string
	Fn     func(In) Out
}

func (m StaticMethod[In, Out]) Describe() string { return m.Type + "." + m.Method }
func (m StaticMethod[In, Out]) Invoke(in In) Out { return m.Fn(in) }
func (StaticMethod[In, Out]) sealed()            {}

// Closure is an anonymous function.
type Closure[In, Out any] struct {
	Fn func(In) Out
}

func (c Closure[In, Out]) Describe() string {
	if c.Fn == nil {
		return "closure(nil)"
	}
	return "closure"
}
func (c Closure[In, Out]) Invoke(in In) Out { return c.Fn(in) }
func (Closure[In, Out]) sealed()            {}

// Method binds fn, a method value of receiver, under the given method name.
func Method[In, Out any](receiver any, name string, fn func(In) Out) BoundMethod[In, Out] {
	return BoundMethod[In, Out]{Receiver: receiver, Method: name, Fn: fn}
}

// Func wraps a named function.
func Func[In, Out any](name string, fn func(In) Out) NamedFunction[In, Out] {
	return NamedFunction[In, Out]{Name: name, Fn: fn}
}

// Anonymous wraps a closure.
func Anonymous[In, Out any](fn func(In) Out) Closure[In, Out] {
	return Closure[In, Out]{Fn: fn}
}

// Static wraps a type-qualified function.
func Static[In, Out any](typeName, method string, fn func(In) Out) StaticMethod[In, Out] {
	return StaticMethod[In, Out]{Type: typeName, Method: method, Fn: fn}
}

func receiverType(r any) string {
	if r == nil {
		return "<nil>"
	}
	t := reflect.TypeOf(r)
	s := t.String()
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// Valid reports whether c has a target to invoke.
func Valid[In, Out any](c Callable[In, Out]) bool {
	switch v := c.(type) {
	case NamedFunction[In, Out]:
		return v.Fn != nil && v.Name != ""
	case BoundMethod[In, Out]:
		return v.Fn != nil && v.Receiver != nil
	case StaticMethod[In, Out]:
		return v.Fn != nil && v.Type != ""
	case Closure[In, Out]:
		return v.Fn != nil
	default:
		return false
	}
}
