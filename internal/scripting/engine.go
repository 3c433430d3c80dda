package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/l1jgo/worldsave/internal/savestate/record"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM running scripted save/load hooks.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script in scriptsDir and
// its hooks/ subdirectory. Missing directories are skipped.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if scriptsDir == "" {
		return e, nil
	}
	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "hooks")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source, typically to define hook functions.
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("lua: %w", err)
	}
	return nil
}

// Has reports whether a global Lua function named fn exists.
func (e *Engine) Has(fn string) bool {
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// CallSave calls the Lua function fn(rec). Every key the script adds is
// stored under scope + "." + key.
func (e *Engine) CallSave(fn, scope string, w record.Writer) error {
	rec := e.vm.NewTable()
	add := func(name string, conv func(lua.LValue) (record.Value, bool)) {
		rec.RawSetString(name, e.vm.NewFunction(func(L *lua.LState) int {
			key := L.CheckString(1)
			v, ok := conv(L.Get(2))
			if !ok {
				L.ArgError(2, fmt.Sprintf("%s: unsupported value %s", name, L.Get(2).Type()))
				return 0
			}
			w.AddValue(scoped(scope, key), v)
			return 0
		}))
	}
	add("add_int", func(v lua.LValue) (record.Value, bool) {
		n, ok := v.(lua.LNumber)
		return record.Int(int64(n)), ok
	})
	add("add_float", func(v lua.LValue) (record.Value, bool) {
		n, ok := v.(lua.LNumber)
		return record.Float(float64(n)), ok
	})
	add("add_string", func(v lua.LValue) (record.Value, bool) {
		s, ok := v.(lua.LString)
		return record.String(string(s)), ok
	})
	add("add_bool", func(v lua.LValue) (record.Value, bool) {
		b, ok := v.(lua.LBool)
		return record.Bool(bool(b)), ok
	})
	add("add_strings", func(v lua.LValue) (record.Value, bool) {
		t, ok := v.(*lua.LTable)
		if !ok {
			return record.Value{}, false
		}
		ss := make([]string, 0, t.Len())
		for i := 1; i <= t.Len(); i++ {
			ss = append(ss, lua.LVAsString(t.RawGetInt(i)))
		}
		return record.Strings(ss), true
	})
	return e.call(fn, rec)
}

// CallLoad calls the Lua function fn(rec). The get_* accessors read
// scope + "." + key and return nil when the record is absent; a record of
// another kind raises a Lua error.
func (e *Engine) CallLoad(fn, scope string, r record.Reader) error {
	rec := e.vm.NewTable()
	get := func(name string, kind record.Kind, conv func(record.Value) lua.LValue) {
		rec.RawSetString(name, e.vm.NewFunction(func(L *lua.LState) int {
			key := scoped(scope, L.CheckString(1))
			if !r.Has(key) {
				L.Push(lua.LNil)
				return 1
			}
			v, err := r.GetValue(key, kind)
			if err != nil {
				L.RaiseError("%s: %s", name, err)
				return 0
			}
			L.Push(conv(v))
			return 1
		}))
	}
	get("get_int", record.KindInt, func(v record.Value) lua.LValue {
		i, _ := v.AsInt()
		return lua.LNumber(i)
	})
	get("get_float", record.KindFloat, func(v record.Value) lua.LValue {
		f, _ := v.AsFloat()
		return lua.LNumber(f)
	})
	get("get_string", record.KindString, func(v record.Value) lua.LValue {
		s, _ := v.AsString()
		return lua.LString(s)
	})
	get("get_bool", record.KindBool, func(v record.Value) lua.LValue {
		b, _ := v.AsBool()
		return lua.LBool(b)
	})
	get("get_strings", record.KindStrings, func(v record.Value) lua.LValue {
		ss, _ := v.AsStrings()
		t := e.vm.NewTable()
		for _, s := range ss {
			t.Append(lua.LString(s))
		}
		return t
	})
	rec.RawSetString("has", e.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(r.Has(scoped(scope, L.CheckString(1)))))
		return 1
	}))
	return e.call(fn, rec)
}

func (e *Engine) call(name string, arg lua.LValue) error {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return fmt.Errorf("lua function %s not found", name)
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, arg); err != nil {
		e.log.Error("lua hook error", zap.String("fn", name), zap.Error(err))
		return fmt.Errorf("lua %s: %w", name, err)
	}
	return nil
}

func scoped(scope, key string) string {
	if scope == "" {
		return key
	}
	return scope + "." + key
}

// Close releases the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
