package savestate

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/l1jgo/worldsave/internal/core/ecs"
	"github.com/l1jgo/worldsave/internal/savestate/convert"
	"go.uber.org/zap"
)

// Scanner builds catalogs from a host's live components.
type Scanner struct {
	reg *convert.Registry
	log *zap.Logger
}

func NewScanner(reg *convert.Registry, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{reg: reg, log: log}
}

// Scan catalogs every declared member and hook of the active world. Members
// whose type cannot be persisted are excluded with a diagnostic and the scan
// goes on. Scanning never calls accessors or hooks.
func (s *Scanner) Scan(h Host) (*Catalog, error) {
	cat := newCatalog(h.ActiveContext())
	seen := make(map[typeSlot]int)
	var dups []error

	for _, inst := range h.Instances() {
		typeName := componentTypeName(inst.Component)
		slot := typeSlot{entity: inst.Entity, typeName: typeName}
		if k := seen[slot]; k > 0 {
			typeName = fmt.Sprintf("%s[%d]", typeName, k)
		}
		seen[slot]++

		if sv, ok := inst.Component.(Saveable); ok {
			m := &Members{reg: s.reg, log: s.log, inst: inst, typeName: typeName, alive: h.Alive}
			sv.SaveMembers(m)
			for _, b := range m.fields {
				dups = cat.add(b, &cat.Fields, dups)
			}
			for _, b := range m.properties {
				dups = cat.add(b, &cat.Properties, dups)
			}
			cat.Diagnostics = append(cat.Diagnostics, m.diagnostics...)
		}
		if hook, ok := inst.Component.(SaveHook); ok {
			cat.SaveHooks = append(cat.SaveHooks, SaveHookRef{Owner: inst.Entity, Path: inst.Path, Hook: hook})
		}
		if hook, ok := inst.Component.(LoadHook); ok {
			cat.LoadHooks = append(cat.LoadHooks, LoadHookRef{Owner: inst.Entity, Path: inst.Path, Hook: hook})
		}
	}

	if len(dups) > 0 {
		return nil, errors.Join(dups...)
	}
	s.log.Debug("scan complete",
		zap.Int64("context", cat.Context),
		zap.Int("fields", len(cat.Fields)),
		zap.Int("properties", len(cat.Properties)),
		zap.Int("save_hooks", len(cat.SaveHooks)),
		zap.Int("load_hooks", len(cat.LoadHooks)),
		zap.Int("excluded", len(cat.Diagnostics)),
	)
	return cat, nil
}

type typeSlot struct {
	entity   ecs.EntityID
	typeName string
}

func (c *Catalog) add(b *Binding, list *[]*Binding, dups []error) []error {
	if _, exists := c.index[b.ID]; exists {
		return append(dups, fmt.Errorf("%w: %s", ErrDuplicateIdentifier, b.ID))
	}
	c.index[b.ID] = b
	*list = append(*list, b)
	return dups
}

// componentTypeName is the bare type name of a component, pointer stripped.
func componentTypeName(c any) string {
	t := reflect.TypeOf(c)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "nil"
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
