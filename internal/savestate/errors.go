package savestate

import "errors"

var (
	// ErrBusy rejects an operation while a save, load or world switch is in
	// flight.
	ErrBusy = errors.New("savestate: operation in progress")
	// ErrDuplicateIdentifier fails a scan that produced the same member
	// identifier twice.
	ErrDuplicateIdentifier = errors.New("savestate: duplicate member identifier")
	// ErrNoContext is returned when a record set lacks the world key.
	ErrNoContext = errors.New("savestate: record set has no world context")
	// ErrMissingRecord fails a strict load when a bound member has no record.
	ErrMissingRecord = errors.New("savestate: missing record")
	// ErrStaleInstance is returned when a binding's owner has been destroyed
	// since the scan.
	ErrStaleInstance = errors.New("savestate: instance is no longer alive")
)
