package component

import (
	"time"

	"github.com/l1jgo/worldsave/internal/savestate"
	"github.com/l1jgo/worldsave/internal/savestate/record"
	"github.com/l1jgo/worldsave/internal/scripting"
)

// Actor is a living character. HP and level are stored directly; the
// position goes through accessors so movement can clamp it.
type Actor struct {
	Name  string
	HP    int
	MaxHP int
	Level int16

	pos Vec3
}

func (a *Actor) Position() Vec3 { return a.pos }

// SetPosition moves the actor. Coordinates outside the world bounds are
// clamped.
func (a *Actor) SetPosition(p Vec3) {
	a.pos = Vec3{clamp(p.X), clamp(p.Y), clamp(p.Z)}
}

func (a *Actor) SaveMembers(m *savestate.Members) {
	savestate.Field(m, "hp", &a.HP)
	savestate.Field(m, "level", &a.Level)
	savestate.Property(m, "pos", a.Position, a.SetPosition)
}

const worldBound = 10000

func clamp(v float32) float32 {
	switch {
	case v > worldBound:
		return worldBound
	case v < -worldBound:
		return -worldBound
	}
	return v
}

// Transform places a node in the world.
type Transform struct {
	Pose Pose
}

func (t *Transform) SaveMembers(m *savestate.Members) {
	savestate.Field(m, "pose", &t.Pose)
}

// Inventory holds carried items and gold.
type Inventory struct {
	Items []string
	gold  int64
}

func (i *Inventory) Gold() int64     { return i.gold }
func (i *Inventory) AddGold(n int64) { i.gold += n }
func (i *Inventory) SetGold(n int64) { i.gold = n }
func (i *Inventory) Add(item string) { i.Items = append(i.Items, item) }

func (i *Inventory) SaveMembers(m *savestate.Members) {
	savestate.Field(m, "items", &i.Items)
	savestate.Field(m, "gold", &i.gold)
}

// Clock tracks play time in one world.
type Clock struct {
	Elapsed time.Duration
	Paused  bool
}

// Advance adds dt unless the clock is paused.
func (c *Clock) Advance(dt time.Duration) {
	if !c.Paused {
		c.Elapsed += dt
	}
}

func (c *Clock) SaveMembers(m *savestate.Members) {
	savestate.Field(m, "elapsed", &c.Elapsed)
	savestate.Field(m, "paused", &c.Paused)
}

// Particle is transient render state.
type Particle struct {
	Pos  Vec3
	Life float32
}

// Emitter spawns particles. Its live particles have no converter and are
// not persisted; the rate is.
type Emitter struct {
	Rate      float32
	particles []Particle
}

func (e *Emitter) SaveMembers(m *savestate.Members) {
	savestate.Field(m, "rate", &e.Rate)
	savestate.Field(m, "particles", &e.particles)
}

// Script delegates saving and loading to Lua hook functions. Records are
// keyed under the owning entity's path.
type Script struct {
	Name   string
	SaveFn string
	LoadFn string

	engine *scripting.Engine
	scope  string
}

func NewScript(engine *scripting.Engine, path, name string) *Script {
	return &Script{
		Name:   name,
		SaveFn: name + "_save",
		LoadFn: name + "_load",
		engine: engine,
		scope:  savestate.HookKey(path, name),
	}
}

func (s *Script) OnSave(w record.Writer) error {
	return s.engine.CallSave(s.SaveFn, s.scope, w)
}

func (s *Script) OnLoad(r record.Reader) error {
	return s.engine.CallLoad(s.LoadFn, s.scope, r)
}
