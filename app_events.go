package main

import (
	"log/slog"
	"time"

	"sameappswitcher/internal/control"
	"sameappswitcher/internal/hotkeys"
	"sameappswitcher/internal/ipc"
)

// commandReplyTimeout bounds how long a pipe client waits for the loop
// thread to apply its command.
const commandReplyTimeout = 3 * time.Second

// OnHotkey handles WM_HOTKEY on the loop thread.
func (a *App) OnHotkey(id hotkeys.ID) bool {
	return a.controller.HandleHotkey(id)
}

// OnWake drains the work queued by other goroutines.
func (a *App) OnWake() bool {
	return a.drainCommands()
}

// drainCommands applies every queued event and reports whether the process
// should exit.
func (a *App) drainCommands() bool {
	for {
		select {
		case ev := <-a.events:
			if ev.reload {
				a.applyReload()
				continue
			}
			ev.reply <- a.applyCommand(ev.command)
		default:
			return a.controller.ExitRequested()
		}
	}
}

func (a *App) applyCommand(cmd ipc.Command) ipc.Response {
	slog.Debug("[DEBUG-APP] control command", "command", cmd)
	switch cmd {
	case ipc.CommandPause:
		a.controller.SetPaused(true)
	case ipc.CommandResume:
		a.controller.SetPaused(false)
	case ipc.CommandToggleRestore:
		a.controller.ToggleRestore()
	case ipc.CommandExit:
		a.controller.RequestExit()
	case ipc.CommandStatus:
	default:
		return ipc.ErrorResponse("unknown command %q", cmd)
	}
	st := a.controller.Status()
	return ipc.Response{
		OK:               true,
		Paused:           st.Mode == control.Paused,
		RestoreMinimized: st.RestoreOnSwitch,
	}
}

// applyReload re-reads the settings file. A file that fails to parse keeps
// the current settings; the runtime toggles are never touched.
func (a *App) applyReload() {
	cfg, err := loadConfigFn(a.configPath)
	if err != nil {
		slog.Warn("[WARN-APP] config reload failed, keeping current settings", "path", a.configPath, "error", err)
		return
	}
	if cfg.ControlPipe != a.cfg.ControlPipe {
		slog.Info("[INFO-APP] control_pipe change takes effect on restart")
	}
	a.cfg = cfg
	if a.levelVar != nil {
		a.levelVar.Set(cfg.Level())
	}
	a.enumerator.SetTitles(a.titleReader(cfg))
	a.controller.Reconfigure(settingsFromConfig(cfg))
	slog.Info("[INFO-APP] config reloaded", "path", a.configPath)
}

// Execute implements ipc.CommandExecutor. It runs on a pipe connection
// goroutine and hands the command to the loop thread.
func (a *App) Execute(req ipc.Request) ipc.Response {
	if a.shuttingDown.Load() {
		return ipc.ErrorResponse("shutting down")
	}
	ev := appEvent{command: req.Command, reply: make(chan ipc.Response, 1)}
	select {
	case a.events <- ev:
	case <-a.done:
		return ipc.ErrorResponse("shutting down")
	default:
		return ipc.ErrorResponse("busy, try again later")
	}
	if err := a.loop.Wake(); err != nil {
		slog.Warn("[WARN-APP] failed to wake hotkey loop", "error", err)
	}

	timer := time.NewTimer(commandReplyTimeout)
	defer timer.Stop()
	select {
	case resp := <-ev.reply:
		return resp
	case <-a.done:
		// An exit command replies and stops the loop in the same wake.
		select {
		case resp := <-ev.reply:
			return resp
		default:
		}
		return ipc.ErrorResponse("shutting down")
	case <-timer.C:
		return ipc.ErrorResponse("timed out waiting for the switcher")
	}
}

// requestReload queues a config reload. Called from the watcher's timer
// goroutine.
func (a *App) requestReload() {
	select {
	case a.events <- appEvent{reload: true}:
	default:
		slog.Debug("[DEBUG-APP] reload already pending")
		return
	}
	if err := a.loop.Wake(); err != nil {
		slog.Warn("[WARN-APP] failed to wake hotkey loop for reload", "error", err)
	}
}
