package component

import (
	"context"
	"testing"
	"time"

	"github.com/l1jgo/worldsave/internal/core/event"
	coresys "github.com/l1jgo/worldsave/internal/core/system"
	"github.com/l1jgo/worldsave/internal/persist"
	"github.com/l1jgo/worldsave/internal/savestate"
	"github.com/l1jgo/worldsave/internal/savestate/convert"
	"github.com/l1jgo/worldsave/internal/savestate/record"
	"github.com/l1jgo/worldsave/internal/scene"
	"github.com/l1jgo/worldsave/internal/scripting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConverters(t *testing.T) {
	reg := convert.NewRegistry()
	RegisterConverters(reg)
	assert.Equal(t, 6, reg.Len())

	pose := Pose{Position: Vec3{1, 2, 3}, Rotation: Quat{0, 0.5, 0, 0.5}, Scale: Vec3{2, 2, 2}}
	c, native, ok := convert.Resolve[Pose](reg)
	require.True(t, ok)
	assert.False(t, native)
	v, err := c.ToSurrogate(pose)
	require.NoError(t, err)
	fs, _ := v.AsFloats()
	assert.Len(t, fs, 10)
	back, err := c.FromSurrogate(v)
	require.NoError(t, err)
	assert.Equal(t, pose, back)

	d, ok := convert.Lookup[time.Duration](reg)
	require.True(t, ok)
	v, err = d.ToSurrogate(90 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, record.Int(int64(90*time.Second)), v)

	v2, ok := convert.Lookup[Vec2](reg)
	require.True(t, ok)
	_, err = v2.FromSurrogate(record.Floats([]float64{1, 2, 3}))
	assert.Error(t, err)
}

func TestActor_ClampsPosition(t *testing.T) {
	a := &Actor{}
	a.SetPosition(Vec3{20000, -20000, 5})
	assert.Equal(t, Vec3{worldBound, -worldBound, 5}, a.Position())
}

func TestClock_Advance(t *testing.T) {
	c := &Clock{}
	c.Advance(time.Second)
	c.Paused = true
	c.Advance(time.Second)
	assert.Equal(t, time.Second, c.Elapsed)
}

func TestFactories_ParamErrors(t *testing.T) {
	f := Factories(nil)
	_, err := f["actor"]("/A", map[string]any{"hp": "lots"})
	assert.ErrorContains(t, err, "param hp")
	_, err = f["actor"]("/A", map[string]any{"pos": []any{1, 2}})
	assert.ErrorContains(t, err, "param pos")
	_, err = f["script"]("/A", map[string]any{"name": "q"})
	assert.ErrorContains(t, err, "scripting engine")
	_, err = f["clock"]("/A", map[string]any{"elapsed": "soon"})
	assert.ErrorContains(t, err, "param elapsed")

	c, err := f["actor"]("/A", map[string]any{"hp": 7, "pos": []any{1, 2.5, 3}})
	require.NoError(t, err)
	assert.Equal(t, 7, c.(*Actor).HP)
	assert.Equal(t, Vec3{1, 2.5, 3}, c.(*Actor).Position())
}

const worldScenes = `
- id: 1
  name: meadow
  nodes:
    - name: World
      components:
        - type: clock
        - type: script
          params: { name: quest }
      children:
        - name: Player
          components:
            - type: actor
              params: { name: hero, hp: 100 }
            - type: inventory
              params: { gold: 10, items: [sword] }
        - name: Fountain
          components:
            - type: transform
              params: { pos: [4, 0, 4] }
            - type: emitter
              params: { rate: 30 }
- id: 2
  name: cave
  nodes:
    - name: Cave
      components:
        - type: actor
          params: { name: bat, hp: 5 }
`

const questLua = `
quest = { stage = 1 }
function quest_save(rec) rec.add_int("stage", quest.stage) end
function quest_load(rec) quest.stage = rec.get_int("stage") or quest.stage end
`

type harness struct {
	scenes *scene.Manager
	saves  *savestate.Manager
	runner *coresys.Runner
	engine *scripting.Engine
	loaded []event.GameLoaded
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	engine, err := scripting.NewEngine("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	require.NoError(t, engine.LoadString(questLua))

	table, err := scene.ParseTable([]byte(worldScenes))
	require.NoError(t, err)

	bus := event.NewBus()
	h := &harness{engine: engine}
	event.Subscribe(bus, func(e event.GameLoaded) { h.loaded = append(h.loaded, e) })

	h.scenes = scene.NewManager(table, Factories(engine), scene.Options{LoadTicks: 3, Bus: bus}, zap.NewNop())
	require.NoError(t, h.scenes.Open(1))

	reg := convert.NewRegistry()
	RegisterConverters(reg)
	store, err := persist.NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	h.saves = savestate.NewManager(h.scenes, savestate.NewScanner(reg, zap.NewNop()), store, zap.NewNop(), savestate.Options{Bus: bus})

	h.runner = coresys.NewRunner()
	h.runner.Register(coresys.NewEventDispatchSystem(bus))
	h.runner.Register(h.scenes)
	return h
}

func (h *harness) node(t *testing.T, path string, k int) any {
	t.Helper()
	w := h.scenes.World()
	id, ok := w.Find(path)
	require.True(t, ok, "no entity at %s", path)
	n, _ := w.Node(id)
	return n.Components[k]
}

// questStage reads the live Lua quest stage through the save hook.
func (h *harness) questStage(t *testing.T) int64 {
	t.Helper()
	set := record.NewSet()
	require.NoError(t, h.engine.CallSave("quest_save", "", set))
	v, err := set.GetValue("stage", record.KindInt)
	require.NoError(t, err)
	n, _ := v.AsInt()
	return n
}

func TestSaveSwitchLoad_EndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	player := h.node(t, "/World/Player", 0).(*Actor)
	player.HP = 7
	player.SetPosition(Vec3{1, 2, 3})
	inv := h.node(t, "/World/Player", 1).(*Inventory)
	inv.Add("shield")
	inv.SetGold(250)
	h.node(t, "/World", 0).(*Clock).Elapsed = 90 * time.Second
	require.NoError(t, h.engine.LoadString(`quest.stage = 4`))

	require.NoError(t, h.saves.Save(ctx, "slot1"))
	cat := h.saves.Catalog()
	require.Len(t, cat.Diagnostics, 1, "emitter particles have no converter")
	assert.Equal(t, "/World/Fountain/Emitter.particles", cat.Diagnostics[0].ID)

	// Wander into the cave; the meadow is gone.
	require.NoError(t, h.scenes.Open(2))
	h.saves.Invalidate()
	require.NoError(t, h.engine.LoadString(`quest.stage = 1`))

	done, err := h.saves.Load(ctx, "slot1")
	require.NoError(t, err)
	for i := 0; i < 10 && !done.Fired(); i++ {
		h.runner.Tick(50 * time.Millisecond)
	}
	require.True(t, done.Fired())
	require.NoError(t, done.Err())
	assert.Equal(t, int64(1), h.scenes.ActiveContext())

	player = h.node(t, "/World/Player", 0).(*Actor)
	assert.Equal(t, 7, player.HP)
	assert.Equal(t, Vec3{1, 2, 3}, player.Position())
	inv = h.node(t, "/World/Player", 1).(*Inventory)
	assert.Equal(t, []string{"sword", "shield"}, inv.Items)
	assert.Equal(t, int64(250), inv.Gold())
	assert.Equal(t, 90*time.Second, h.node(t, "/World", 0).(*Clock).Elapsed)
	assert.Equal(t, int64(4), h.questStage(t))

	h.runner.Tick(0)
	require.Len(t, h.loaded, 1)
	assert.Equal(t, "slot1", h.loaded[0].Name)
	assert.Zero(t, h.loaded[0].Skipped)
}

func TestLoad_MissingSlotLeavesWorld(t *testing.T) {
	h := newHarness(t)
	player := h.node(t, "/World/Player", 0).(*Actor)
	player.HP = 33

	_, err := h.saves.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, persist.ErrNotFound)
	assert.Equal(t, 33, player.HP)
	assert.False(t, h.scenes.Pending())
}
