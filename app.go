package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"sameappswitcher/internal/candidates"
	"sameappswitcher/internal/config"
	"sameappswitcher/internal/control"
	"sameappswitcher/internal/cycle"
	"sameappswitcher/internal/hotkeys"
	"sameappswitcher/internal/identity"
	"sameappswitcher/internal/ipc"
)

// hotkeyLoop is the slice of hotkeys.Loop the App drives.
type hotkeyLoop interface {
	Run(ctx context.Context, h hotkeys.Handler) error
	Register(id hotkeys.ID, b hotkeys.Binding) error
	Unregister(id hotkeys.ID) error
	Wake() error
}

// windowSystem is everything the App needs from the OS window system.
type windowSystem interface {
	candidates.WindowSystem
	candidates.TitleReader
	identity.ProcessQuerier
	cycle.Activator
	control.ForegroundSource
	control.KeyState
}

type desktopService interface {
	candidates.DesktopService
	Close()
}

type pipeServer interface {
	Start() error
	Stop() error
}

// appEvent is work handed to the loop thread from another goroutine.
type appEvent struct {
	reload  bool
	command ipc.Command
	reply   chan ipc.Response
}

// eventQueueSize bounds pending pipe commands and reloads. Producers never
// block on a full queue; they fail fast instead.
const eventQueueSize = 16

// App wires the switching engine to the hotkey loop and the background
// services. Fields marked "loop thread" are only touched from Handler
// callbacks.
type App struct {
	configPath string
	levelVar   *slog.LevelVar

	loop hotkeyLoop
	sys  windowSystem

	// Loop thread.
	cfg        config.Config
	desktop    desktopService
	enumerator *candidates.Enumerator
	controller *control.Controller

	events   chan appEvent
	done     chan struct{} // closed once the loop stops serving events
	doneOnce sync.Once

	// Background services, started from OnStart and stopped in teardown.
	bgCtx        context.Context
	bgCancel     context.CancelFunc
	bgWG         sync.WaitGroup
	pipeServer   pipeServer
	shuttingDown atomic.Bool
}

// appOptions are the collaborators of an App.
type appOptions struct {
	configPath string
	cfg        config.Config
	levelVar   *slog.LevelVar
	loop       hotkeyLoop
	sys        windowSystem
}

// NewApp creates the app service.
func NewApp(opts appOptions) *App {
	return &App{
		configPath: opts.configPath,
		cfg:        opts.cfg,
		levelVar:   opts.levelVar,
		loop:       opts.loop,
		sys:        opts.sys,
		events:     make(chan appEvent, eventQueueSize),
		done:       make(chan struct{}),
	}
}

func settingsFromConfig(cfg config.Config) control.Settings {
	b := cfg.Bindings()
	return control.Settings{
		Bindings: control.Bindings{
			Forward:       b.Forward,
			Backward:      b.Backward,
			ToggleRestore: b.ToggleRestore,
			ExitOrPause:   b.ExitOrPause,
		},
		RestoreOnSwitch:   cfg.RestoreMinimized,
		ActiveDesktopOnly: cfg.ActiveDesktopOnly,
		DumpCandidates:    cfg.Diagnostics.WindowTitles,
	}
}

// titleReader returns the diagnostic title channel when cfg enables it.
func (a *App) titleReader(cfg config.Config) candidates.TitleReader {
	if !cfg.Diagnostics.WindowTitles {
		return nil
	}
	return a.sys
}
