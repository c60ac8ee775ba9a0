package hotkeys

// Handler receives the events of a Loop. Every method runs on the loop
// thread, one call at a time.
type Handler interface {
	// OnStart runs before the first message is read. Register the initial
	// hotkeys here; a returned error aborts Run.
	OnStart() error
	// OnHotkey handles one WM_HOTKEY notification. Returning true stops Run.
	OnHotkey(id ID) bool
	// OnWake handles a Wake request. Returning true stops Run.
	OnWake() bool
	// OnStop runs once when Run is about to return after a successful
	// OnStart, before the remaining hotkeys are released.
	OnStop()
}
