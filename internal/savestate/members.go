package savestate

import (
	"strings"

	"github.com/l1jgo/worldsave/internal/core/ecs"
	"github.com/l1jgo/worldsave/internal/savestate/convert"
	"github.com/l1jgo/worldsave/internal/savestate/record"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// Saveable components declare their persisted members. Unexported state is
// declared the same way as exported state.
type Saveable interface {
	SaveMembers(m *Members)
}

// SaveHook components add arbitrary records during a save.
type SaveHook interface {
	OnSave(w record.Writer) error
}

// LoadHook components read arbitrary records during a load. The reader is
// the full record set.
type LoadHook interface {
	OnLoad(r record.Reader) error
}

// Identifier builds the stable address of one member:
// path + "/" + typeName + "." + member, each part in NFC.
func Identifier(path, typeName, member string) string {
	var b strings.Builder
	b.Grow(len(path) + len(typeName) + len(member) + 2)
	b.WriteString(norm.NFC.String(path))
	b.WriteByte('/')
	b.WriteString(norm.NFC.String(typeName))
	b.WriteByte('.')
	b.WriteString(norm.NFC.String(member))
	return b.String()
}

// HookKey returns an instance-scoped record key for hooks that persist
// per-instance data.
func HookKey(path, suffix string) string {
	return norm.NFC.String(path) + "@" + suffix
}

// Members collects the declarations of one component instance during a scan.
type Members struct {
	reg      *convert.Registry
	log      *zap.Logger
	inst     Instance
	typeName string
	alive    func(ecs.EntityID) bool

	fields      []*Binding
	properties  []*Binding
	diagnostics []Diagnostic
}

// Path is the owning entity's positional path, for hooks built alongside
// member declarations.
func (m *Members) Path() string { return m.inst.Path }

// Field binds a member stored directly at ptr.
func Field[T any](m *Members, name string, ptr *T) {
	c, ok := resolve[T](m, name)
	if !ok {
		return
	}
	if ptr == nil {
		m.reject(name, convert.TypeName[T](), "nil field pointer")
		return
	}
	b := m.binding(MemberField, name, c.SurrogateKind(), convert.TypeName[T]())
	b.read = func() (record.Value, error) { return c.ToSurrogate(*ptr) }
	b.prepare = func(v record.Value) (func(), error) {
		x, err := c.FromSurrogate(v)
		if err != nil {
			return nil, err
		}
		return func() { *ptr = x }, nil
	}
	m.fields = append(m.fields, b)
}

// Property binds a member reached through accessors.
func Property[T any](m *Members, name string, get func() T, set func(T)) {
	c, ok := resolve[T](m, name)
	if !ok {
		return
	}
	if get == nil || set == nil {
		m.reject(name, convert.TypeName[T](), "property needs both a getter and a setter")
		return
	}
	b := m.binding(MemberProperty, name, c.SurrogateKind(), convert.TypeName[T]())
	b.read = func() (record.Value, error) { return c.ToSurrogate(get()) }
	b.prepare = func(v record.Value) (func(), error) {
		x, err := c.FromSurrogate(v)
		if err != nil {
			return nil, err
		}
		return func() { set(x) }, nil
	}
	m.properties = append(m.properties, b)
}

func resolve[T any](m *Members, name string) (convert.Converter[T], bool) {
	c, _, ok := convert.Resolve[T](m.reg)
	if !ok {
		m.reject(name, convert.TypeName[T](), "no native codec or registered converter")
	}
	return c, ok
}

func (m *Members) binding(kind MemberKind, name string, surrogate record.Kind, goType string) *Binding {
	return &Binding{
		ID:     Identifier(m.inst.Path, m.typeName, name),
		Owner:  m.inst.Entity,
		Member: kind,
		Kind:   surrogate,
		GoType: goType,
		alive:  m.alive,
	}
}

func (m *Members) reject(name, goType, reason string) {
	d := Diagnostic{
		ID:     Identifier(m.inst.Path, m.typeName, name),
		Path:   m.inst.Path,
		Type:   m.typeName,
		Member: name,
		GoType: goType,
		Reason: reason,
	}
	m.diagnostics = append(m.diagnostics, d)
	m.log.Error("member excluded from save",
		zap.String("path", d.Path),
		zap.String("type", d.Type),
		zap.String("member", d.Member),
		zap.String("go_type", d.GoType),
		zap.String("reason", d.Reason),
	)
}
