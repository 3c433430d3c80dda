package scene

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ComponentDef names a component factory and its parameters.
type ComponentDef struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

// NodeDef is one entity of a scene with its components and children.
type NodeDef struct {
	Name       string         `yaml:"name"`
	Components []ComponentDef `yaml:"components"`
	Children   []NodeDef      `yaml:"children"`
}

// Definition is one loadable world.
type Definition struct {
	ID    int64     `yaml:"id"`
	Name  string    `yaml:"name"`
	Nodes []NodeDef `yaml:"nodes"`
}

// Table provides lookup of scene definitions by world id.
type Table struct {
	scenes map[int64]*Definition
	order  []int64
}

// LoadTable loads scenes.yaml.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene table: %w", err)
	}
	return ParseTable(raw)
}

// ParseTable parses a YAML list of scene definitions.
func ParseTable(raw []byte) (*Table, error) {
	var defs []Definition
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("parse scene table: %w", err)
	}
	t := &Table{scenes: make(map[int64]*Definition, len(defs))}
	for i := range defs {
		d := &defs[i]
		if _, dup := t.scenes[d.ID]; dup {
			return nil, fmt.Errorf("parse scene table: duplicate scene id %d", d.ID)
		}
		t.scenes[d.ID] = d
		t.order = append(t.order, d.ID)
	}
	return t, nil
}

// Get returns the scene with the given id, or nil if none.
func (t *Table) Get(id int64) *Definition {
	return t.scenes[id]
}

// IDs returns scene ids in file order.
func (t *Table) IDs() []int64 {
	return append([]int64(nil), t.order...)
}

// Count returns the total number of scenes loaded.
func (t *Table) Count() int {
	return len(t.scenes)
}
