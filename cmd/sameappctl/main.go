// Command sameappctl controls a running sameappswitcher over its named pipe.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sameappswitcher/internal/ipc"
)

// sendFn is a test seam.
var sendFn = ipc.Send

// errNotRunning is returned when no switcher owns the pipe.
var errNotRunning = errors.New("switcher not running")

var commandHelp = map[ipc.Command]string{
	ipc.CommandStatus:        "Print whether cycling is paused and whether minimized windows are restored",
	ipc.CommandPause:         "Release the cycling hotkeys until resumed",
	ipc.CommandResume:        "Register the cycling hotkeys again",
	ipc.CommandToggleRestore: "Flip restoring of minimized windows while cycling",
	ipc.CommandExit:          "Ask the switcher to release its hotkeys and exit",
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		pipeName string
		asJSON   bool
	)
	root := &cobra.Command{
		Use:          "sameappctl",
		Short:        "Control a running sameappswitcher",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&pipeName, "pipe", "", "pipe name (default: per-user pipe or $SAMEAPPSWITCHER_PIPE)")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print the raw JSON response")

	for _, command := range ipc.Commands() {
		root.AddCommand(&cobra.Command{
			Use:   string(command),
			Short: commandHelp[command],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCommand(cmd.OutOrStdout(), pipeName, command, asJSON)
			},
		})
	}
	return root
}

func runCommand(w io.Writer, pipeName string, command ipc.Command, asJSON bool) error {
	resp, err := sendFn(pipeName, ipc.Request{Command: command})
	if err != nil {
		if ipc.IsConnectionError(err) {
			return fmt.Errorf("%w: %v", errNotRunning, err)
		}
		return fmt.Errorf("%s: %w", command, err)
	}
	if !resp.OK {
		return fmt.Errorf("%s: %s", command, resp.Error)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		return enc.Encode(resp)
	}
	state := "active"
	if resp.Paused {
		state = "paused"
	}
	restore := "off"
	if resp.RestoreMinimized {
		restore = "on"
	}
	_, err = fmt.Fprintf(w, "cycling: %s\nrestore minimized: %s\n", state, restore)
	return err
}
