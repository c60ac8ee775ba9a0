package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sameappswitcher/internal/candidates"
	"sameappswitcher/internal/config"
	"sameappswitcher/internal/control"
	"sameappswitcher/internal/cycle"
	"sameappswitcher/internal/identity"
	"sameappswitcher/internal/ipc"
	"sameappswitcher/internal/vdesktop"
	"sameappswitcher/internal/workerutil"
)

var (
	openDesktopFn = func() (desktopService, error) {
		m, err := vdesktop.Open()
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	newPipeServerFn = func(name string, exec ipc.CommandExecutor) pipeServer {
		return ipc.NewPipeServer(name, exec)
	}
	loadConfigFn  = config.Load
	watchConfigFn = config.Watch
)

const shutdownWaitTimeout = 5 * time.Second

// run drives the hotkey loop until exit is requested or ctx is cancelled.
// It returns the loop error, which wraps control.ErrForwardHotkey when the
// cycling hotkey could not be claimed.
func (a *App) run(ctx context.Context) error {
	a.bgCtx, a.bgCancel = context.WithCancel(ctx)
	defer a.teardown()
	return a.loop.Run(ctx, a)
}

// OnStart builds the engine on the loop thread. The virtual desktop service
// is opened here because its COM apartment belongs to this thread.
func (a *App) OnStart() error {
	a.openDesktop()

	resolver := identity.NewResolver(a.sys)
	opts := []candidates.Option{candidates.WithTitles(a.titleReader(a.cfg))}
	if a.desktop != nil {
		opts = append(opts, candidates.WithDesktop(a.desktop))
	}
	a.enumerator = candidates.NewEnumerator(a.sys, resolver, opts...)

	a.controller = control.New(control.Deps{
		Registrar:  a.loop,
		Keys:       a.sys,
		Foreground: a.sys,
		Resolver:   resolver,
		Enumerator: a.enumerator,
		Navigator:  cycle.NewNavigator(a.sys),
	}, settingsFromConfig(a.cfg))

	if err := a.controller.Start(); err != nil {
		slog.Error("[ERROR-APP] Failed to register hot key", "binding", a.cfg.Hotkeys.Forward, "error", err)
		a.closeDesktop()
		a.markDone()
		return err
	}

	a.startBackground()
	slog.Info("[INFO-APP] switcher ready",
		"config", a.configPath,
		"desktopFilter", a.enumerator.DesktopFilterAvailable(),
		"restoreMinimized", a.cfg.RestoreMinimized,
	)
	return nil
}

// OnStop releases loop-thread resources. Hotkeys still held afterwards are
// released by the loop itself.
func (a *App) OnStop() {
	a.markDone()
	if a.controller != nil {
		a.controller.Shutdown()
	}
	a.closeDesktop()
}

func (a *App) openDesktop() {
	desktop, err := openDesktopFn()
	if err != nil {
		slog.Warn("[WARN-APP] virtual desktop service unavailable, desktop filter disabled", "error", err)
		return
	}
	a.desktop = desktop
}

func (a *App) closeDesktop() {
	if a.desktop == nil {
		return
	}
	a.desktop.Close()
	a.desktop = nil
}

func (a *App) startBackground() {
	if a.cfg.ControlPipe {
		srv := newPipeServerFn(ipc.DefaultPipeName(), a)
		if err := srv.Start(); err != nil {
			slog.Warn("[WARN-APP] control pipe disabled", "error", err)
		} else {
			a.pipeServer = srv
		}
	}

	if _, err := os.Stat(filepath.Dir(a.configPath)); err != nil {
		slog.Info("[INFO-APP] config directory not found, live reload disabled", "path", a.configPath)
		return
	}
	workerutil.RunWithRestart(a.bgCtx, "config-watcher", &a.bgWG, func(ctx context.Context) error {
		return watchConfigFn(ctx, a.configPath, config.DefaultDebounce, a.requestReload)
	}, workerutil.RecoveryOptions{
		OnFatal: func(worker string, lastErr error) {
			slog.Warn("[WARN-APP] config reload disabled", "worker", worker, "error", lastErr)
		},
	})
}

func (a *App) markDone() {
	a.doneOnce.Do(func() { close(a.done) })
}

// teardown stops the background services after the loop has returned.
func (a *App) teardown() {
	a.shuttingDown.Store(true)
	a.markDone()
	if a.bgCancel != nil {
		a.bgCancel()
	}
	if a.pipeServer != nil {
		if err := a.pipeServer.Stop(); err != nil {
			slog.Warn("[WARN-APP] control pipe stop failed", "error", err)
		}
		a.pipeServer = nil
	}

	waitDone := make(chan struct{})
	go func() {
		a.bgWG.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownWaitTimeout):
		slog.Warn("[WARN-APP] background workers did not stop in time")
	}
}
