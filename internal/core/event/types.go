package event

// WorldLoaded is emitted by the scene host once an asynchronous world switch
// has finished building the new world.
type WorldLoaded struct {
	Context  int64
	Name     string
	Entities int
}

// GameSaved is emitted after a save slot has been written.
type GameSaved struct {
	Name    string
	Context int64
	Records int
}

// GameLoaded is emitted after a record set has been applied to the live world.
type GameLoaded struct {
	Name    string
	Context int64
	Applied int
	Skipped int
}
