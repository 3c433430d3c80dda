// Package savestate persists and restores the saveable state of a live
// world. A Scanner discovers declared members into a Catalog, and a Manager
// turns the catalog into a record set on save and writes a decoded record
// set back onto the live instances on load, switching worlds first when the
// save was taken in a different one.
package savestate

import (
	"context"

	"github.com/l1jgo/worldsave/internal/core/ecs"
	"github.com/l1jgo/worldsave/internal/core/task"
)

// Instance is one live component as the host reports it.
type Instance struct {
	Entity    ecs.EntityID
	Path      string // positional path of the owning entity
	Component any
}

// Host is the component model the core scans and restores.
type Host interface {
	// Instances returns every live component of the active world in a
	// stable discovery order.
	Instances() []Instance
	Alive(id ecs.EntityID) bool
	ActiveContext() int64
	// SwitchContext requests that the world target becomes active. The
	// completion fires once the new world is fully built.
	SwitchContext(target int64) *task.Completion
}

// Store is the slot storage the manager saves to and loads from.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, pattern string) ([]string, error)
}
