package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"sameappswitcher/internal/config"
	"sameappswitcher/internal/diaglog"
	"sameappswitcher/internal/hotkeys"
	"sameappswitcher/internal/ipc"
	"sameappswitcher/internal/singleinstance"
	"sameappswitcher/internal/winapi"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

var sendFn = ipc.Send

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "sameappswitcher",
		Short:        "Cycle through the windows of the foreground application",
		Long:         "Runs in the background and cycles through the top-level windows of the foreground application on the current virtual desktop when the hotkey is pressed.",
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSwitcher(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "settings file (yaml or toml); defaults to the per-user config directory")
	return cmd
}

func runSwitcher(ctx context.Context, configPath string) error {
	levelVar := diaglog.Setup(slog.LevelInfo, diaglog.DebuggerSink())

	mutexLock, err := singleinstance.TryLock(singleinstance.DefaultMutexName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[INFO-SINGLE] another instance is already running")
		if resp, sendErr := sendFn("", ipc.Request{Command: ipc.CommandStatus}); sendErr == nil {
			slog.Info("[INFO-SINGLE] running instance status", "paused", resp.Paused, "restoreMinimized", resp.RestoreMinimized)
		}
		return nil
	}
	if err != nil {
		slog.Warn("[WARN-SINGLE] mutex creation failed, proceeding without single-instance guard", "error", err)
	}
	if mutexLock != nil {
		defer func() {
			if releaseErr := mutexLock.Release(); releaseErr != nil {
				slog.Warn("[WARN-SINGLE] mutex release failed", "error", releaseErr)
			}
		}()
	}

	path := config.ResolvePath(configPath)
	cfg, err := loadConfigFn(path)
	if err != nil {
		slog.Warn("[WARN-APP] config load failed, running with defaults", "path", path, "error", err)
	}
	levelVar.Set(cfg.Level())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	app := NewApp(appOptions{
		configPath: path,
		cfg:        cfg,
		levelVar:   levelVar,
		loop:       hotkeys.NewLoop(),
		sys:        winapi.New(),
	})
	return app.run(ctx)
}
