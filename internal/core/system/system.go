package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput   Phase = iota // 0: swap + dispatch last tick's events
	PhaseScene                // 1: advance pending world switches
	PhaseUpdate               // 2: game logic
	PhasePersist              // 3: scheduled saves
	PhaseCleanup              // 4: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "Input"
	case PhaseScene:
		return "Scene"
	case PhaseUpdate:
		return "Update"
	case PhasePersist:
		return "Persist"
	case PhaseCleanup:
		return "Cleanup"
	default:
		return "Unknown"
	}
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
