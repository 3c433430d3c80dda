package savestate

import (
	"fmt"

	"github.com/l1jgo/worldsave/internal/savestate/record"
)

// ContextKey is the reserved record holding the world that was active when
// the save was taken.
const ContextKey = "World_ActiveId"

// Envelope is the record set of one save slot. It carries no policy.
type Envelope struct {
	set *record.Set
}

// NewEnvelope starts a record set whose first record is the world context.
func NewEnvelope(context int64) *Envelope {
	s := record.NewSet()
	s.AddValue(ContextKey, record.Int(context))
	return &Envelope{set: s}
}

// OpenEnvelope decodes a blob written by Bytes.
func OpenEnvelope(data []byte) (*Envelope, error) {
	s, err := record.Decode(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{set: s}, nil
}

// Add stores v under key after checking it carries the declared kind.
func (e *Envelope) Add(key string, kind record.Kind, v record.Value) error {
	if v.Kind() != kind {
		return fmt.Errorf("add %q: %w: declared %s, value is %s", key, record.ErrKindMismatch, kind, v.Kind())
	}
	e.set.AddValue(key, v)
	return nil
}

// Get is the typed read.
func (e *Envelope) Get(key string, kind record.Kind) (record.Value, error) {
	return e.set.GetValue(key, kind)
}

// Context returns the world recorded under ContextKey.
func (e *Envelope) Context() (int64, error) {
	return contextOf(e.set)
}

func (e *Envelope) Set() *record.Set { return e.set }

// Bytes encodes the record set.
func (e *Envelope) Bytes() ([]byte, error) {
	return record.Encode(e.set)
}

func contextOf(s *record.Set) (int64, error) {
	v, ok := s.Lookup(ContextKey)
	if !ok {
		return 0, ErrNoContext
	}
	id, err := v.AsInt()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoContext, err)
	}
	return id, nil
}
