// Package scene hosts the live world: it builds entities and components
// from scene definitions and switches between worlds asynchronously over a
// number of game ticks.
package scene

import (
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/worldsave/internal/core/ecs"
	"github.com/l1jgo/worldsave/internal/core/event"
	coresys "github.com/l1jgo/worldsave/internal/core/system"
	"github.com/l1jgo/worldsave/internal/core/task"
	"github.com/l1jgo/worldsave/internal/savestate"
	"go.uber.org/zap"
)

var (
	// ErrUnknownScene is returned for a world id missing from the table.
	ErrUnknownScene = errors.New("scene: unknown scene")
	// ErrSwitchPending rejects a second switch to a different world.
	ErrSwitchPending = errors.New("scene: world switch already in progress")
)

// Factory builds one component. path is the owning entity's positional path.
type Factory func(path string, params map[string]any) (any, error)

// Factories maps component type names used in scene files to factories.
type Factories map[string]Factory

type Options struct {
	// LoadTicks is how many ticks a switch takes before the new world is
	// built. Zero builds during SwitchContext.
	LoadTicks int
	Bus       *event.Bus
}

// Manager owns the ECS world and implements savestate.Host.
// Accessed only from the game loop goroutine.
type Manager struct {
	world     *ecs.World
	table     *Table
	factories Factories
	opts      Options
	log       *zap.Logger

	active  int64
	pending *pendingSwitch
}

type pendingSwitch struct {
	target    int64
	ticksLeft int
	done      *task.Completion
}

var (
	_ savestate.Host = (*Manager)(nil)
	_ coresys.System = (*Manager)(nil)
)

func NewManager(table *Table, factories Factories, opts Options, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		world:     ecs.NewWorld(),
		table:     table,
		factories: factories,
		opts:      opts,
		log:       log,
	}
}

func (m *Manager) World() *ecs.World { return m.world }

// Open builds a world immediately, replacing the current one.
func (m *Manager) Open(id int64) error {
	if m.pending != nil {
		return ErrSwitchPending
	}
	return m.build(id)
}

// Pending reports whether a world switch is in progress.
func (m *Manager) Pending() bool { return m.pending != nil }

// Instances returns every component of the active world, entities in
// creation order and components in attach order.
func (m *Manager) Instances() []savestate.Instance {
	out := make([]savestate.Instance, 0, m.world.Len())
	m.world.Each(func(id ecs.EntityID, n *ecs.Node) {
		path := m.world.Path(id)
		for _, c := range n.Components {
			out = append(out, savestate.Instance{Entity: id, Path: path, Component: c})
		}
	})
	return out
}

func (m *Manager) Alive(id ecs.EntityID) bool { return m.world.Alive(id) }
func (m *Manager) ActiveContext() int64       { return m.active }

// SwitchContext starts building world target. The completion fires on the
// game loop once the new world is built, or with an error.
func (m *Manager) SwitchContext(target int64) *task.Completion {
	if m.table.Get(target) == nil {
		return task.Completed(fmt.Errorf("switch to %d: %w", target, ErrUnknownScene))
	}
	if p := m.pending; p != nil {
		if p.target == target {
			return p.done
		}
		return task.Completed(fmt.Errorf("switch to %d while loading %d: %w", target, p.target, ErrSwitchPending))
	}
	m.pending = &pendingSwitch{target: target, ticksLeft: m.opts.LoadTicks, done: task.New()}
	m.log.Info("world switch requested", zap.Int64("from", m.active), zap.Int64("to", target), zap.Int("ticks", m.opts.LoadTicks))
	done := m.pending.done
	if m.opts.LoadTicks == 0 {
		m.finish()
	}
	return done
}

func (m *Manager) Phase() coresys.Phase { return coresys.PhaseScene }

// Update advances a pending switch by one tick.
func (m *Manager) Update(_ time.Duration) {
	p := m.pending
	if p == nil {
		return
	}
	p.ticksLeft--
	if p.ticksLeft <= 0 {
		m.finish()
	}
}

func (m *Manager) finish() {
	p := m.pending
	m.pending = nil
	err := m.build(p.target)
	p.done.Fire(err)
}

func (m *Manager) build(id int64) error {
	def := m.table.Get(id)
	if def == nil {
		return fmt.Errorf("open %d: %w", id, ErrUnknownScene)
	}
	m.world.Clear()
	for _, n := range def.Nodes {
		if err := m.spawn(n, 0); err != nil {
			m.world.Clear()
			m.active = 0
			return fmt.Errorf("open scene %q: %w", def.Name, err)
		}
	}
	m.active = id
	m.log.Info("world loaded", zap.Int64("context", id), zap.String("scene", def.Name), zap.Int("entities", m.world.Len()))
	event.Emit(m.opts.Bus, event.WorldLoaded{Context: id, Name: def.Name, Entities: m.world.Len()})
	return nil
}

func (m *Manager) spawn(n NodeDef, parent ecs.EntityID) error {
	id, err := m.world.CreateNode(n.Name, parent)
	if err != nil {
		return err
	}
	path := m.world.Path(id)
	for _, cd := range n.Components {
		f, ok := m.factories[cd.Type]
		if !ok {
			return fmt.Errorf("%s: unknown component type %q", path, cd.Type)
		}
		c, err := f(path, cd.Params)
		if err != nil {
			return fmt.Errorf("%s: build %s: %w", path, cd.Type, err)
		}
		if err := m.world.Attach(id, c); err != nil {
			return err
		}
	}
	for _, child := range n.Children {
		if err := m.spawn(child, id); err != nil {
			return err
		}
	}
	return nil
}
