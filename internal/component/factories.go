package component

import (
	"fmt"
	"time"

	"github.com/l1jgo/worldsave/internal/scene"
	"github.com/l1jgo/worldsave/internal/scripting"
)

// Factories returns the scene factories for every component in this
// package. engine backs "script" components and may be nil when no scene
// uses them.
func Factories(engine *scripting.Engine) scene.Factories {
	return scene.Factories{
		"actor": func(_ string, p map[string]any) (any, error) {
			hp, err := intParam(p, "hp", 100)
			if err != nil {
				return nil, err
			}
			maxHP, err := intParam(p, "max_hp", hp)
			if err != nil {
				return nil, err
			}
			level, err := intParam(p, "level", 1)
			if err != nil {
				return nil, err
			}
			pos, err := floatsParam(p, "pos", 3)
			if err != nil {
				return nil, err
			}
			a := &Actor{Name: stringParam(p, "name"), HP: hp, MaxHP: maxHP, Level: int16(level)}
			if pos != nil {
				a.SetPosition(Vec3{float32(pos[0]), float32(pos[1]), float32(pos[2])})
			}
			return a, nil
		},
		"transform": func(_ string, p map[string]any) (any, error) {
			pos, err := floatsParam(p, "pos", 3)
			if err != nil {
				return nil, err
			}
			t := &Transform{Pose: Pose{Rotation: IdentityQuat, Scale: Vec3{1, 1, 1}}}
			if pos != nil {
				t.Pose.Position = Vec3{float32(pos[0]), float32(pos[1]), float32(pos[2])}
			}
			return t, nil
		},
		"inventory": func(_ string, p map[string]any) (any, error) {
			gold, err := intParam(p, "gold", 0)
			if err != nil {
				return nil, err
			}
			items, err := stringsParam(p, "items")
			if err != nil {
				return nil, err
			}
			return &Inventory{Items: items, gold: int64(gold)}, nil
		},
		"clock": func(_ string, p map[string]any) (any, error) {
			c := &Clock{}
			if s := stringParam(p, "elapsed"); s != "" {
				d, err := time.ParseDuration(s)
				if err != nil {
					return nil, fmt.Errorf("param elapsed: %w", err)
				}
				c.Elapsed = d
			}
			return c, nil
		},
		"emitter": func(_ string, p map[string]any) (any, error) {
			rate, err := floatParam(p, "rate", 10)
			if err != nil {
				return nil, err
			}
			return &Emitter{Rate: float32(rate)}, nil
		},
		"script": func(path string, p map[string]any) (any, error) {
			if engine == nil {
				return nil, fmt.Errorf("script component needs a scripting engine")
			}
			name := stringParam(p, "name")
			if name == "" {
				return nil, fmt.Errorf("param name is required")
			}
			s := NewScript(engine, path, name)
			if !engine.Has(s.SaveFn) || !engine.Has(s.LoadFn) {
				return nil, fmt.Errorf("script %q: lua functions %s and %s must exist", name, s.SaveFn, s.LoadFn)
			}
			return s, nil
		},
	}
}

func stringParam(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func intParam(p map[string]any, key string, def int) (int, error) {
	switch v := p[key].(type) {
	case nil:
		return def, nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("param %s: want integer, have %T", key, v)
	}
}

func floatParam(p map[string]any, key string, def float64) (float64, error) {
	switch v := p[key].(type) {
	case nil:
		return def, nil
	case int:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("param %s: want number, have %T", key, v)
	}
}

// floatsParam reads a list of exactly n numbers; nil when absent.
func floatsParam(p map[string]any, key string, n int) ([]float64, error) {
	raw, ok := p[key]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok || len(list) != n {
		return nil, fmt.Errorf("param %s: want a list of %d numbers", key, n)
	}
	out := make([]float64, n)
	for i, v := range list {
		f, err := floatParam(map[string]any{key: v}, key, 0)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func stringsParam(p map[string]any, key string) ([]string, error) {
	raw, ok := p[key]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("param %s: want a list of strings", key)
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("param %s: want a list of strings, have %T", key, v)
		}
		out = append(out, s)
	}
	return out, nil
}
