// Package convert maps Go value types to persistable record values: a
// built-in codec for natively persistable types and an exact-type registry
// of converters for everything else.
package convert

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/l1jgo/worldsave/internal/savestate/record"
)

// Converter turns a T into a persistable surrogate and back.
type Converter[T any] interface {
	ToSurrogate(v T) (record.Value, error)
	FromSurrogate(v record.Value) (T, error)
	SurrogateKind() record.Kind
}

// Funcs adapts a pair of functions into a Converter.
type Funcs[T any] struct {
	Kind record.Kind
	To   func(T) (record.Value, error)
	From func(record.Value) (T, error)
}

func (f Funcs[T]) ToSurrogate(v T) (record.Value, error)   { return f.To(v) }
func (f Funcs[T]) FromSurrogate(v record.Value) (T, error) { return f.From(v) }
func (f Funcs[T]) SurrogateKind() record.Kind              { return f.Kind }

// Registry holds one converter per exact Go type. Lookup never falls back
// to an underlying or embedded type: a named type needs its own entry.
//
// The registry is populated once at start-up, before the first scan, and is
// read-only afterwards. It is not safe for concurrent mutation.
type Registry struct {
	entries map[reflect.Type]any
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[reflect.Type]any, 16)}
}

// Register installs c as the converter for T, replacing any previous one.
func Register[T any](r *Registry, c Converter[T]) {
	r.entries[reflect.TypeOf((*T)(nil)).Elem()] = c
}

// Lookup returns the converter registered for exactly T.
func Lookup[T any](r *Registry) (Converter[T], bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.entries[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil, false
	}
	return c.(Converter[T]), true
}

// Len returns the number of registered types.
func (r *Registry) Len() int { return len(r.entries) }

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.entries))
	for t := range r.entries {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return names
}

// Resolve picks the persistence strategy for T: the native codec when T is
// natively persistable, else the registered converter. ok is false when
// neither applies.
func Resolve[T any](r *Registry) (c Converter[T], native bool, ok bool) {
	if c, ok := Native[T](); ok {
		return c, true, true
	}
	if c, ok := Lookup[T](r); ok {
		return c, false, true
	}
	return nil, false, false
}

// TypeName returns the Go type name of T for diagnostics.
func TypeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// FloatsOf returns a converter for fixed-size float vectors. split writes the
// components of a T; join rebuilds a T from exactly n components.
func FloatsOf[T any](n int, split func(T) []float64, join func([]float64) T) Converter[T] {
	return Funcs[T]{
		Kind: record.KindFloats,
		To: func(v T) (record.Value, error) {
			return record.Floats(split(v)), nil
		},
		From: func(v record.Value) (T, error) {
			var zero T
			fs, err := v.AsFloats()
			if err != nil {
				return zero, err
			}
			if len(fs) != n {
				return zero, fmt.Errorf("convert %s: want %d floats, have %d", TypeName[T](), n, len(fs))
			}
			return join(fs), nil
		},
	}
}
