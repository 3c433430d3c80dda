package system

import (
	"time"

	"github.com/l1jgo/worldsave/internal/core/event"
)

// EventDispatchSystem makes last tick's events visible and delivers them.
// Phase 0 (Input).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() Phase { return PhaseInput }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
