package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/worldsave/internal/component"
	"github.com/l1jgo/worldsave/internal/config"
	"github.com/l1jgo/worldsave/internal/core/event"
	coresys "github.com/l1jgo/worldsave/internal/core/system"
	"github.com/l1jgo/worldsave/internal/persist"
	"github.com/l1jgo/worldsave/internal/savestate"
	"github.com/l1jgo/worldsave/internal/savestate/convert"
	"github.com/l1jgo/worldsave/internal/savestate/record"
	"github.com/l1jgo/worldsave/internal/scene"
	"github.com/l1jgo/worldsave/internal/scripting"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const usage = `usage: worldsave [-config path] <command> [args]

commands:
  demo                 boot a scene, save it, switch worlds and load it back
  list [-match glob]   list save slots
  inspect <slot>       dump a save slot as YAML
  exists <slot>        report whether a save slot exists
  rm <slot>            delete a save slot
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Display helpers ───────────────────────────────────────────────

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Commands ──────────────────────────────────────────────────────

func run(args []string) error {
	fs := flag.NewFlagSet("worldsave", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	cfgPath := fs.String("config", "", "config file (default $WORLDSAVE_CONFIG or config/worldsave.toml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command")
	}

	path := *cfgPath
	if path == "" {
		path = os.Getenv("WORLDSAVE_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("config/worldsave.toml"); err == nil {
			path = "config/worldsave.toml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := persist.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "demo":
		return runDemo(ctx, cfg, store, log)
	case "list":
		return runList(ctx, store, rest)
	case "inspect":
		return withSlot(rest, func(name string) error { return runInspect(ctx, store, name) })
	case "exists":
		return withSlot(rest, func(name string) error {
			ok, err := store.Exists(ctx, name)
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		})
	case "rm":
		return withSlot(rest, func(name string) error { return store.Delete(ctx, name) })
	}
	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func withSlot(args []string, fn func(name string) error) error {
	if len(args) != 1 {
		return errors.New("expected exactly one save slot name")
	}
	return fn(args[0])
}

func runList(ctx context.Context, store persist.Store, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	match := fs.String("match", "", "glob pattern for slot names")
	if err := fs.Parse(args); err != nil {
		return err
	}
	names, err := store.List(ctx, *match)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func runInspect(ctx context.Context, store persist.Store, name string) error {
	data, err := store.Read(ctx, name)
	if err != nil {
		return err
	}
	env, err := savestate.OpenEnvelope(data)
	if err != nil {
		return err
	}
	out, err := record.MarshalYAML(env.Set())
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// runDemo boots the initial scene, saves it, switches to another world and
// loads the save back, driving the async switch from the game loop.
func runDemo(ctx context.Context, cfg *config.Config, store persist.Store, log *zap.Logger) error {
	printSection("Data")
	table, err := scene.LoadTable(cfg.Scene.Table)
	if err != nil {
		return fmt.Errorf("load scene table: %w", err)
	}
	printStat("Scenes", table.Count())

	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	printOK("Lua engine ready")

	reg := convert.NewRegistry()
	component.RegisterConverters(reg)
	printStat("Converters", reg.Len())
	fmt.Println()

	bus := event.NewBus()
	scenes := scene.NewManager(table, component.Factories(engine), scene.Options{LoadTicks: cfg.Scene.LoadTicks, Bus: bus}, log)
	saves := savestate.NewManager(scenes, savestate.NewScanner(reg, log), store, log, savestate.Options{
		StrictMissing: cfg.Load.StrictMissing,
		Bus:           bus,
	})

	event.Subscribe(bus, func(e event.WorldLoaded) {
		saves.Invalidate()
		log.Debug("world ready", zap.String("scene", e.Name), zap.Int("entities", e.Entities))
	})
	event.Subscribe(bus, func(e event.GameSaved) {
		printOK(fmt.Sprintf("saved %q: %d records from world %d", e.Name, e.Records, e.Context))
	})
	event.Subscribe(bus, func(e event.GameLoaded) {
		printOK(fmt.Sprintf("loaded %q: %d applied, %d skipped", e.Name, e.Applied, e.Skipped))
	})

	runner := coresys.NewRunner()
	runner.Register(coresys.NewEventDispatchSystem(bus))
	runner.Register(scenes)

	printSection("World")
	if err := scenes.Open(cfg.Scene.Initial); err != nil {
		return err
	}
	if err := saves.Rescan(); err != nil {
		return err
	}
	cat := saves.Catalog()
	printStat("Fields", len(cat.Fields))
	printStat("Properties", len(cat.Properties))
	printStat("Hooks", len(cat.SaveHooks)+len(cat.LoadHooks))
	printStat("Excluded", len(cat.Diagnostics))
	fmt.Println()

	printSection("Save / Load")
	for _, a := range actors(scenes) {
		a.HP -= 10
		a.SetPosition(component.Vec3{X: 1, Y: 2, Z: 3})
	}
	const slot = "demo"
	if err := saves.Save(ctx, slot); err != nil {
		return err
	}
	other, ok := otherScene(table, cfg.Scene.Initial)
	if ok {
		if err := scenes.Open(other); err != nil {
			return err
		}
		printOK(fmt.Sprintf("moved to world %d", other))
	}

	done, err := saves.Load(ctx, slot)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Scene.TickRate)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Scene.TickRate)
		case <-done.Done():
			runner.Tick(cfg.Scene.TickRate) // deliver the load events
			if err := done.Err(); err != nil {
				return err
			}
			for _, a := range actors(scenes) {
				p := a.Position()
				printOK(fmt.Sprintf("%s hp=%d pos=(%g,%g,%g)", a.Name, a.HP, p.X, p.Y, p.Z))
			}
			printReady(fmt.Sprintf("world %d restored after %d ticks", scenes.ActiveContext(), runner.Ticks()))
			return nil
		case <-ctx.Done():
			log.Info("interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}
}

func actors(m *scene.Manager) []*component.Actor {
	var out []*component.Actor
	for _, inst := range m.Instances() {
		if a, ok := inst.Component.(*component.Actor); ok {
			out = append(out, a)
		}
	}
	return out
}

func otherScene(t *scene.Table, current int64) (int64, bool) {
	for _, id := range t.IDs() {
		if id != current {
			return id, true
		}
	}
	return 0, false
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
