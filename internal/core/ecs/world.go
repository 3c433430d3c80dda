package ecs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDeadEntity is returned when an operation names an entity that is no
// longer alive (destroyed, or from an earlier generation).
var ErrDeadEntity = errors.New("ecs: entity is not alive")

// Node is the containment record of one entity: its name, its place in the
// hierarchy and the components attached to it in attach order.
type Node struct {
	Name       string
	Parent     EntityID // zero for roots
	Children   []EntityID
	Components []any
}

// World is the top-level ECS container. It owns the entity pool, the node
// hierarchy, the component registry, and a deferred destruction queue
// flushed at the end of each tick.
//
// Accessed only from the game loop goroutine, so it holds no locks.
type World struct {
	pool         *EntityPool
	registry     *Registry
	nodes        *PtrComponentStore[Node]
	roots        []EntityID
	order        []EntityID // creation order
	destroyQueue []EntityID
}

func NewWorld() *World {
	w := &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		nodes:        NewPtrComponentStore[Node](),
		roots:        make([]EntityID, 0, 16),
		order:        make([]EntityID, 0, 256),
		destroyQueue: make([]EntityID, 0, 64),
	}
	w.registry.Register(w.nodes)
	return w
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// CreateNode allocates an entity named name under parent. A zero parent
// creates a root.
func (w *World) CreateNode(name string, parent EntityID) (EntityID, error) {
	if !parent.IsZero() && !w.pool.Alive(parent) {
		return 0, fmt.Errorf("create node %q under %s: %w", name, parent, ErrDeadEntity)
	}
	id := w.pool.Create()
	w.nodes.Set(id, &Node{Name: name, Parent: parent})
	if parent.IsZero() {
		w.roots = append(w.roots, id)
	} else {
		p, _ := w.nodes.Get(parent)
		p.Children = append(p.Children, id)
	}
	w.order = append(w.order, id)
	return id, nil
}

// Attach adds a component to a live entity.
func (w *World) Attach(id EntityID, c any) error {
	n, ok := w.node(id)
	if !ok {
		return fmt.Errorf("attach %T to %s: %w", c, id, ErrDeadEntity)
	}
	n.Components = append(n.Components, c)
	return nil
}

// Node returns the hierarchy record of a live entity.
func (w *World) Node(id EntityID) (*Node, bool) {
	return w.node(id)
}

func (w *World) node(id EntityID) (*Node, bool) {
	if !w.pool.Alive(id) {
		return nil, false
	}
	return w.nodes.Get(id)
}

// Find returns the first live entity whose Path equals path.
func (w *World) Find(path string) (EntityID, bool) {
	for _, id := range w.order {
		if w.pool.Alive(id) && w.Path(id) == path {
			return id, true
		}
	}
	return 0, false
}

// Path returns the positional path of an entity: "/" joined segment names
// from the root down. A name repeated among siblings gets an ordinal suffix
// ("Enemy", "Enemy[1]", "Enemy[2]") so two entities at the same structural
// position across a rebuild always get the same path.
func (w *World) Path(id EntityID) string {
	var segs []string
	for cur := id; !cur.IsZero(); {
		n, ok := w.node(cur)
		if !ok {
			return ""
		}
		segs = append(segs, w.segment(cur, n))
		cur = n.Parent
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(segs[i])
	}
	return b.String()
}

func (w *World) segment(id EntityID, n *Node) string {
	siblings := w.roots
	if !n.Parent.IsZero() {
		if p, ok := w.node(n.Parent); ok {
			siblings = p.Children
		}
	}
	ordinal := 0
	for _, sib := range siblings {
		if sib == id {
			break
		}
		if sn, ok := w.nodes.Get(sib); ok && sn.Name == n.Name {
			ordinal++
		}
	}
	if ordinal == 0 {
		return n.Name
	}
	return fmt.Sprintf("%s[%d]", n.Name, ordinal)
}

// Each visits every live entity in creation order.
func (w *World) Each(fn func(EntityID, *Node)) {
	for _, id := range w.order {
		if n, ok := w.node(id); ok {
			fn(id, n)
		}
	}
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.pool.Live()
}

// MarkForDestruction queues an entity (and its subtree) for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue destroys all queued entities and clears their components.
func (w *World) FlushDestroyQueue() {
	for _, id := range w.destroyQueue {
		w.destroy(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
	w.compact()
}

// Clear destroys every entity immediately. Generations advance, so any
// EntityID handed out before Clear reports dead afterwards.
func (w *World) Clear() {
	roots := append([]EntityID(nil), w.roots...)
	for _, id := range roots {
		w.destroy(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
	w.compact()
}

func (w *World) destroy(id EntityID) {
	n, ok := w.node(id)
	if !ok {
		return
	}
	for _, child := range append([]EntityID(nil), n.Children...) {
		w.destroy(child)
	}
	if n.Parent.IsZero() {
		w.roots = without(w.roots, id)
	} else if p, ok := w.node(n.Parent); ok {
		p.Children = without(p.Children, id)
	}
	w.registry.RemoveAll(id)
	w.pool.Destroy(id)
}

func (w *World) compact() {
	live := w.order[:0]
	for _, id := range w.order {
		if w.pool.Alive(id) {
			live = append(live, id)
		}
	}
	w.order = live
}

func without(ids []EntityID, id EntityID) []EntityID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
