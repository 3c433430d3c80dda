package savestate

import (
	"fmt"

	"github.com/l1jgo/worldsave/internal/core/ecs"
	"github.com/l1jgo/worldsave/internal/savestate/record"
)

// MemberKind distinguishes directly stored members from accessor pairs.
type MemberKind uint8

const (
	MemberField MemberKind = iota
	MemberProperty
)

func (k MemberKind) String() string {
	if k == MemberProperty {
		return "property"
	}
	return "field"
}

// Binding ties one identifier to a live member. It holds the owner's
// generation-tagged id and refuses to touch the member once the owner is
// gone.
type Binding struct {
	ID     string
	Owner  ecs.EntityID
	Member MemberKind
	Kind   record.Kind // surrogate kind
	GoType string

	alive   func(ecs.EntityID) bool
	read    func() (record.Value, error)
	prepare func(record.Value) (func(), error)
}

// Read converts the live value to its surrogate.
func (b *Binding) Read() (record.Value, error) {
	if err := b.check(); err != nil {
		return record.Value{}, err
	}
	v, err := b.read()
	if err != nil {
		return record.Value{}, fmt.Errorf("read %s: %w", b.ID, err)
	}
	return v, nil
}

// Write converts v back and stores it in the live member.
func (b *Binding) Write(v record.Value) error {
	apply, err := b.Prepare(v)
	if err != nil {
		return err
	}
	apply()
	return nil
}

// Prepare converts v without touching the member; the returned func stores
// the converted value.
func (b *Binding) Prepare(v record.Value) (func(), error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if v.Kind() != b.Kind {
		return nil, fmt.Errorf("write %s: %w: record is %s, member wants %s", b.ID, record.ErrKindMismatch, v.Kind(), b.Kind)
	}
	apply, err := b.prepare(v)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", b.ID, err)
	}
	return apply, nil
}

func (b *Binding) check() error {
	if b.alive != nil && !b.alive(b.Owner) {
		return fmt.Errorf("%s (owner %s): %w", b.ID, b.Owner, ErrStaleInstance)
	}
	return nil
}

// Diagnostic records a declared member the scan had to exclude.
type Diagnostic struct {
	ID     string
	Path   string
	Type   string
	Member string
	GoType string
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s (%s): %s", d.ID, d.GoType, d.Reason)
}

// SaveHookRef is a save hook together with the instance that owns it.
type SaveHookRef struct {
	Owner ecs.EntityID
	Path  string
	Hook  SaveHook
}

// LoadHookRef is a load hook together with the instance that owns it.
type LoadHookRef struct {
	Owner ecs.EntityID
	Path  string
	Hook  LoadHook
}

// Catalog is the result of one scan: everything persistable in the world
// that was active at scan time, in discovery order then declaration order.
type Catalog struct {
	Context     int64
	SaveHooks   []SaveHookRef
	LoadHooks   []LoadHookRef
	Fields      []*Binding
	Properties  []*Binding
	Diagnostics []Diagnostic

	index map[string]*Binding
}

func newCatalog(context int64) *Catalog {
	return &Catalog{Context: context, index: make(map[string]*Binding, 64)}
}

// Lookup returns the binding for an identifier.
func (c *Catalog) Lookup(id string) (*Binding, bool) {
	b, ok := c.index[id]
	return b, ok
}

// Len returns the number of member bindings.
func (c *Catalog) Len() int { return len(c.Fields) + len(c.Properties) }

// Bindings returns field bindings followed by property bindings.
func (c *Catalog) Bindings() []*Binding {
	out := make([]*Binding, 0, c.Len())
	out = append(out, c.Fields...)
	return append(out, c.Properties...)
}
