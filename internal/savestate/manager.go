package savestate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/l1jgo/worldsave/internal/core/event"
	"github.com/l1jgo/worldsave/internal/core/task"
	"github.com/l1jgo/worldsave/internal/savestate/record"
	"go.uber.org/zap"
)

// Options tune a Manager.
type Options struct {
	// StrictMissing fails a load, before anything is written, when a bound
	// member has no record. By default such members are skipped and keep
	// their live value.
	StrictMissing bool
	// IgnoreContext applies records to whatever world is active instead of
	// switching to the saved one. Saves still record the context.
	IgnoreContext bool
	// Bus receives GameSaved and GameLoaded. Optional.
	Bus *event.Bus
}

// Manager orchestrates saves and loads against one host and one store.
// It runs on the game loop goroutine and holds no locks.
type Manager struct {
	host    Host
	scanner *Scanner
	store   Store
	log     *zap.Logger
	opts    Options

	state   State
	catalog *Catalog
}

func NewManager(host Host, scanner *Scanner, store Store, log *zap.Logger, opts Options) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		host:    host,
		scanner: scanner,
		store:   store,
		log:     log,
		opts:    opts,
	}
}

func (m *Manager) State() State { return m.state }

// Catalog returns the current catalog, or nil when none is valid.
func (m *Manager) Catalog() *Catalog { return m.catalog }

// Invalidate discards the catalog. Hosts call it when the world changes
// outside a load.
func (m *Manager) Invalidate() {
	m.catalog = nil
	if m.state == StateReady {
		m.state = StateIdle
	}
}

// Rescan rebuilds the catalog from the active world.
func (m *Manager) Rescan() error {
	if m.state.busy() {
		return fmt.Errorf("rescan: %w (%s)", ErrBusy, m.state)
	}
	m.state = StateScanning
	err := m.scan()
	m.state = m.resting()
	return err
}

// Snapshot builds the record set a save would write, without touching the
// store.
func (m *Manager) Snapshot() (*record.Set, error) {
	if m.state.busy() {
		return nil, fmt.Errorf("snapshot: %w (%s)", ErrBusy, m.state)
	}
	m.state = StateSaving
	defer func() { m.state = m.resting() }()
	env, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	return env.Set(), nil
}

// Save snapshots the world and writes it to the named slot. Nothing is
// written when the snapshot fails.
func (m *Manager) Save(ctx context.Context, name string) error {
	if m.state.busy() {
		return fmt.Errorf("save %q: %w (%s)", name, ErrBusy, m.state)
	}
	log := m.opLog("save", name)
	m.state = StateSaving
	defer func() { m.state = m.resting() }()

	env, err := m.snapshot()
	if err != nil {
		log.Warn("snapshot failed", zap.Error(err))
		return fmt.Errorf("save %q: %w", name, err)
	}
	data, err := env.Bytes()
	if err != nil {
		return fmt.Errorf("save %q: encode: %w", name, err)
	}
	if err := m.store.Write(ctx, name, data); err != nil {
		log.Warn("store write failed", zap.Error(err))
		return fmt.Errorf("save %q: %w", name, err)
	}

	world, _ := env.Context()
	records := env.Set().Len()
	log.Info("game saved",
		zap.Int64("context", world),
		zap.Int("records", records),
		zap.Int("bytes", len(data)),
	)
	event.Emit(m.opts.Bus, event.GameSaved{Name: name, Context: world, Records: records})
	return nil
}

// Load reads the named slot and applies it. See Apply for the returned
// completion.
func (m *Manager) Load(ctx context.Context, name string) (*task.Completion, error) {
	if m.state.busy() {
		return nil, fmt.Errorf("load %q: %w (%s)", name, ErrBusy, m.state)
	}
	log := m.opLog("load", name)
	m.state = StateLoading

	data, err := m.store.Read(ctx, name)
	if err != nil {
		m.state = m.resting()
		log.Warn("store read failed", zap.Error(err))
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	env, err := OpenEnvelope(data)
	if err != nil {
		m.state = m.resting()
		log.Warn("decode failed", zap.Error(err))
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	return m.apply(log, name, env.Set())
}

// Apply writes a record set onto the live world. When the set was saved in
// the active world the records are applied before Apply returns and the
// completion has already fired. Otherwise Apply requests one world switch
// and returns a pending completion that fires after the new world has been
// rescanned and the records applied. The set is never modified.
func (m *Manager) Apply(set *record.Set) (*task.Completion, error) {
	if m.state.busy() {
		return nil, fmt.Errorf("apply: %w (%s)", ErrBusy, m.state)
	}
	m.state = StateLoading
	return m.apply(m.opLog("apply", ""), "", set)
}

// Exists reports whether the named slot has been written.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	return m.store.Exists(ctx, name)
}

// List returns the slot names matching a glob pattern.
func (m *Manager) List(ctx context.Context, pattern string) ([]string, error) {
	return m.store.List(ctx, pattern)
}

func (m *Manager) apply(log *zap.Logger, name string, set *record.Set) (*task.Completion, error) {
	target, err := contextOf(set)
	if err != nil {
		m.state = m.resting()
		return nil, fmt.Errorf("load %q: %w", name, err)
	}

	active := m.host.ActiveContext()
	if m.opts.IgnoreContext || target == active {
		err := m.applyNow(log, name, target, set)
		m.state = m.resting()
		if err != nil {
			return nil, err
		}
		return task.Completed(nil), nil
	}

	log.Info("switching world before load", zap.Int64("from", active), zap.Int64("to", target))
	m.state = StateAwaitingContext
	done := task.New()
	m.host.SwitchContext(target).OnComplete(func(serr error) {
		m.catalog = nil
		if serr != nil {
			m.state = StateIdle
			log.Warn("world switch failed", zap.Int64("to", target), zap.Error(serr))
			done.Fire(fmt.Errorf("load %q: switch to world %d: %w", name, target, serr))
			return
		}
		if now := m.host.ActiveContext(); now != target {
			m.state = StateIdle
			done.Fire(fmt.Errorf("load %q: switch to world %d left world %d active", name, target, now))
			return
		}
		m.state = StateLoading
		err := m.applyNow(log, name, target, set)
		m.state = m.resting()
		done.Fire(err)
	})
	return done, nil
}

// applyNow runs the apply phase: strict check, convert every present
// record, run load hooks, then write fields followed by properties. Any
// failure before the writes leaves the world untouched.
func (m *Manager) applyNow(log *zap.Logger, name string, world int64, set *record.Set) error {
	if err := m.ensureCatalog(); err != nil {
		return fmt.Errorf("load %q: %w", name, err)
	}
	cat := m.catalog
	bindings := cat.Bindings()

	if m.opts.StrictMissing {
		var missing []string
		for _, b := range bindings {
			if !set.Has(b.ID) {
				missing = append(missing, b.ID)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("load %q: %w: %s", name, ErrMissingRecord, strings.Join(missing, ", "))
		}
	}

	writes := make([]func(), 0, len(bindings))
	skipped := 0
	for _, b := range bindings {
		v, ok := set.Lookup(b.ID)
		if !ok {
			skipped++
			log.Debug("no record for member", zap.String("id", b.ID))
			continue
		}
		apply, err := b.Prepare(v)
		if err != nil {
			return fmt.Errorf("load %q: %w", name, err)
		}
		writes = append(writes, apply)
	}

	for _, h := range cat.LoadHooks {
		if !m.host.Alive(h.Owner) {
			return fmt.Errorf("load %q: hook at %s: %w", name, h.Path, ErrStaleInstance)
		}
		if err := h.Hook.OnLoad(set); err != nil {
			return fmt.Errorf("load %q: hook at %s: %w", name, h.Path, err)
		}
	}

	for _, w := range writes {
		w()
	}

	log.Info("game loaded",
		zap.Int64("context", world),
		zap.Int("applied", len(writes)),
		zap.Int("skipped", skipped),
		zap.Int("hooks", len(cat.LoadHooks)),
	)
	event.Emit(m.opts.Bus, event.GameLoaded{Name: name, Context: world, Applied: len(writes), Skipped: skipped})
	return nil
}

func (m *Manager) snapshot() (*Envelope, error) {
	if err := m.ensureCatalog(); err != nil {
		return nil, err
	}
	cat := m.catalog
	env := NewEnvelope(m.host.ActiveContext())
	for _, h := range cat.SaveHooks {
		if !m.host.Alive(h.Owner) {
			return nil, fmt.Errorf("hook at %s: %w", h.Path, ErrStaleInstance)
		}
		if err := h.Hook.OnSave(env.Set()); err != nil {
			return nil, fmt.Errorf("hook at %s: %w", h.Path, err)
		}
	}
	for _, b := range cat.Bindings() {
		v, err := b.Read()
		if err != nil {
			return nil, err
		}
		if err := env.Add(b.ID, b.Kind, v); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// ensureCatalog rescans when there is no catalog or it was built for
// another world.
func (m *Manager) ensureCatalog() error {
	if m.catalog != nil && m.catalog.Context == m.host.ActiveContext() {
		return nil
	}
	return m.scan()
}

func (m *Manager) scan() error {
	m.catalog = nil
	cat, err := m.scanner.Scan(m.host)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	m.catalog = cat
	return nil
}

func (m *Manager) resting() State {
	if m.catalog != nil {
		return StateReady
	}
	return StateIdle
}

func (m *Manager) opLog(op, name string) *zap.Logger {
	return m.log.With(
		zap.String("op", op),
		zap.String("op_id", uuid.NewString()),
		zap.String("slot", name),
	)
}
