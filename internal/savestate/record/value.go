// Package record defines the persistable value model of a save: type-tagged
// values, the ordered record set they live in, and its binary wire form.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNotFound is returned by Set.GetValue for an absent key.
	ErrNotFound = errors.New("record: key not found")
	// ErrKindMismatch is returned when a typed read names a different kind
	// than the one stored with the value.
	ErrKindMismatch = errors.New("record: kind mismatch")
)

// Kind is the type tag carried alongside every value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindFloats
	KindInts
	KindStrings
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt:     "int",
	KindUint:    "uint",
	KindFloat:   "float",
	KindString:  "string",
	KindBytes:   "bytes",
	KindFloats:  "floats",
	KindInts:    "ints",
	KindStrings: "strings",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k > KindInvalid && k <= KindStrings
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if i > 0 && name == s {
			return Kind(i), nil
		}
	}
	return KindInvalid, fmt.Errorf("record: unknown kind %q", s)
}

// Value is a tagged union over the persistable kinds. The zero Value is
// invalid.
type Value struct {
	kind Kind
	data any
}

func Bool(v bool) Value        { return Value{kind: KindBool, data: v} }
func Int(v int64) Value        { return Value{kind: KindInt, data: v} }
func Uint(v uint64) Value      { return Value{kind: KindUint, data: v} }
func Float(v float64) Value    { return Value{kind: KindFloat, data: v} }
func String(v string) Value    { return Value{kind: KindString, data: v} }
func Bytes(v []byte) Value     { return Value{kind: KindBytes, data: slices.Clone(v)} }
func Floats(v []float64) Value { return Value{kind: KindFloats, data: slices.Clone(v)} }
func Ints(v []int64) Value     { return Value{kind: KindInts, data: slices.Clone(v)} }
func Strings(v []string) Value { return Value{kind: KindStrings, data: slices.Clone(v)} }

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind.Valid() }

func (v Value) AsBool() (bool, error) {
	b, ok := v.data.(bool)
	return b, v.check(KindBool, ok)
}

func (v Value) AsInt() (int64, error) {
	i, ok := v.data.(int64)
	return i, v.check(KindInt, ok)
}

func (v Value) AsUint() (uint64, error) {
	u, ok := v.data.(uint64)
	return u, v.check(KindUint, ok)
}

func (v Value) AsFloat() (float64, error) {
	f, ok := v.data.(float64)
	return f, v.check(KindFloat, ok)
}

func (v Value) AsString() (string, error) {
	s, ok := v.data.(string)
	return s, v.check(KindString, ok)
}

func (v Value) AsBytes() ([]byte, error) {
	b, ok := v.data.([]byte)
	return slices.Clone(b), v.check(KindBytes, ok)
}

func (v Value) AsFloats() ([]float64, error) {
	f, ok := v.data.([]float64)
	return slices.Clone(f), v.check(KindFloats, ok)
}

func (v Value) AsInts() ([]int64, error) {
	i, ok := v.data.([]int64)
	return slices.Clone(i), v.check(KindInts, ok)
}

func (v Value) AsStrings() ([]string, error) {
	s, ok := v.data.([]string)
	return slices.Clone(s), v.check(KindStrings, ok)
}

func (v Value) check(want Kind, ok bool) error {
	if ok && v.kind == want {
		return nil
	}
	return fmt.Errorf("%w: want %s, have %s", ErrKindMismatch, want, v.kind)
}

// Interface returns the payload as a plain Go value (bool, int64, uint64,
// float64, string, []byte, []float64, []int64 or []string).
func (v Value) Interface() any { return v.data }

// Equal reports whether both values carry the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch a := v.data.(type) {
	case []byte:
		return bytes.Equal(a, o.data.([]byte))
	case []float64:
		return slices.Equal(a, o.data.([]float64))
	case []int64:
		return slices.Equal(a, o.data.([]int64))
	case []string:
		return slices.Equal(a, o.data.([]string))
	default:
		return v.data == o.data
	}
}

func (v Value) String() string {
	if !v.IsValid() {
		return "<invalid>"
	}
	return fmt.Sprintf("%s(%v)", v.kind, v.data)
}
