package record

import "fmt"

// Writer is the add side of a record set, handed to save hooks.
type Writer interface {
	AddValue(key string, v Value)
}

// Reader is the typed-read side of a record set, handed to load hooks.
type Reader interface {
	GetValue(key string, kind Kind) (Value, error)
	Has(key string) bool
}

// Set is an insertion-ordered key → Value map. Overwriting a key keeps its
// original position; the last write wins.
type Set struct {
	keys []string
	vals map[string]Value
}

var (
	_ Writer = (*Set)(nil)
	_ Reader = (*Set)(nil)
)

func NewSet() *Set {
	return &Set{vals: make(map[string]Value, 64)}
}

// AddValue stores v under key. Invalid values are ignored.
func (s *Set) AddValue(key string, v Value) {
	if !v.IsValid() {
		return
	}
	if _, ok := s.vals[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.vals[key] = v
}

// GetValue is the typed read: the stored kind must equal kind.
func (s *Set) GetValue(key string, kind Kind) (Value, error) {
	v, ok := s.vals[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if v.kind != kind {
		return Value{}, fmt.Errorf("%w: key %q is %s, requested %s", ErrKindMismatch, key, v.kind, kind)
	}
	return v, nil
}

// Lookup returns the value under key whatever its kind.
func (s *Set) Lookup(key string) (Value, bool) {
	v, ok := s.vals[key]
	return v, ok
}

func (s *Set) Has(key string) bool {
	_, ok := s.vals[key]
	return ok
}

func (s *Set) Len() int { return len(s.keys) }

// Keys returns the keys in insertion order.
func (s *Set) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Each visits every record in insertion order.
func (s *Set) Each(fn func(key string, v Value)) {
	for _, k := range s.keys {
		fn(k, s.vals[k])
	}
}

// Equal reports whether both sets hold the same records, ignoring order.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k, v := range s.vals {
		ov, ok := o.vals[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
