package savestate

import "fmt"

// State is the orchestrator's lifecycle position.
type State uint8

const (
	StateIdle State = iota // no catalog
	StateScanning
	StateReady // catalog valid, nothing in flight
	StateSaving
	StateLoading
	StateAwaitingContext
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateLoading:
		return "loading"
	case StateAwaitingContext:
		return "awaiting-context"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// busy reports whether s rejects a new save or load.
func (s State) busy() bool {
	return s == StateScanning || s == StateSaving || s == StateLoading || s == StateAwaitingContext
}
