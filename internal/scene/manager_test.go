package scene

import (
	"errors"
	"testing"

	"github.com/l1jgo/worldsave/internal/core/event"
	coresys "github.com/l1jgo/worldsave/internal/core/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testScenes = `
- id: 1
  name: town
  nodes:
    - name: Town
      children:
        - name: Guard
          components:
            - type: tag
              params: { label: north }
        - name: Guard
          components:
            - type: tag
              params: { label: south }
            - type: tag
- id: 2
  name: dungeon
  nodes:
    - name: Dungeon
      components:
        - type: tag
- id: 3
  name: broken
  nodes:
    - name: Bad
      components:
        - type: missing
`

type tag struct {
	path  string
	label string
}

func testFactories() Factories {
	return Factories{
		"tag": func(path string, params map[string]any) (any, error) {
			label, _ := params["label"].(string)
			return &tag{path: path, label: label}, nil
		},
	}
}

func newTestManager(t *testing.T, ticks int, bus *event.Bus) *Manager {
	t.Helper()
	table, err := ParseTable([]byte(testScenes))
	require.NoError(t, err)
	return NewManager(table, testFactories(), Options{LoadTicks: ticks, Bus: bus}, zap.NewNop())
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable([]byte(testScenes))
	require.NoError(t, err)
	assert.Equal(t, 3, table.Count())
	assert.Equal(t, []int64{1, 2, 3}, table.IDs())
	assert.Equal(t, "town", table.Get(1).Name)
	assert.Nil(t, table.Get(9))

	_, err = ParseTable([]byte("- id: 1\n- id: 1\n"))
	assert.ErrorContains(t, err, "duplicate scene id 1")

	_, err = ParseTable([]byte("{"))
	assert.Error(t, err)
}

func TestOpen_BuildsHierarchyAndInstances(t *testing.T) {
	m := newTestManager(t, 0, nil)
	require.NoError(t, m.Open(1))
	assert.Equal(t, int64(1), m.ActiveContext())

	inst := m.Instances()
	require.Len(t, inst, 3)
	assert.Equal(t, "/Town/Guard", inst[0].Path)
	assert.Equal(t, "/Town/Guard[1]", inst[1].Path)
	assert.Equal(t, "/Town/Guard[1]", inst[2].Path)
	assert.Equal(t, "north", inst[0].Component.(*tag).label)
	assert.Equal(t, "/Town/Guard[1]", inst[1].Component.(*tag).path, "factories receive the entity path")
	assert.True(t, m.Alive(inst[0].Entity))
}

func TestOpen_Errors(t *testing.T) {
	m := newTestManager(t, 0, nil)
	assert.ErrorIs(t, m.Open(42), ErrUnknownScene)

	require.NoError(t, m.Open(1))
	err := m.Open(3)
	assert.ErrorContains(t, err, `unknown component type "missing"`)
	assert.Equal(t, 0, m.World().Len())
	assert.Zero(t, m.ActiveContext())
}

func TestSwitchContext_CompletesAfterTicks(t *testing.T) {
	bus := event.NewBus()
	var loaded []event.WorldLoaded
	event.Subscribe(bus, func(e event.WorldLoaded) { loaded = append(loaded, e) })

	m := newTestManager(t, 2, bus)
	require.NoError(t, m.Open(1))
	old := m.Instances()[0].Entity

	runner := coresys.NewRunner()
	runner.Register(coresys.NewEventDispatchSystem(bus))
	runner.Register(m)

	done := m.SwitchContext(2)
	assert.Same(t, done, m.SwitchContext(2), "repeat request for the same world joins the pending switch")
	assert.ErrorIs(t, m.SwitchContext(1).Err(), ErrSwitchPending)
	assert.ErrorIs(t, m.Open(1), ErrSwitchPending)

	runner.Tick(0)
	assert.False(t, done.Fired())
	assert.Equal(t, int64(1), m.ActiveContext())

	runner.Tick(0)
	require.True(t, done.Fired())
	assert.NoError(t, done.Err())
	assert.Equal(t, int64(2), m.ActiveContext())
	assert.False(t, m.Alive(old), "entities of the old world are stale after the switch")
	assert.False(t, m.Pending())

	runner.Tick(0)
	require.Len(t, loaded, 2)
	assert.Equal(t, event.WorldLoaded{Context: 2, Name: "dungeon", Entities: 1}, loaded[1])
}

func TestSwitchContext_ZeroTicksAndFailures(t *testing.T) {
	m := newTestManager(t, 0, nil)
	require.NoError(t, m.Open(1))

	done := m.SwitchContext(2)
	require.True(t, done.Fired())
	assert.NoError(t, done.Err())
	assert.Equal(t, int64(2), m.ActiveContext())

	assert.True(t, errors.Is(m.SwitchContext(99).Err(), ErrUnknownScene))

	failed := m.SwitchContext(3)
	require.True(t, failed.Fired())
	assert.Error(t, failed.Err())
	assert.False(t, m.Pending())
}
