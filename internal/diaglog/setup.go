package diaglog

import (
	"io"
	"log/slog"
	"os"

	"sameappswitcher/internal/winapi"
)

// DebuggerPrefix tags every line written to the debugger channel so a
// viewer such as DebugView can filter on it.
const DebuggerPrefix = "SAS: "

// stderr is a test seam for the base handler output.
var stderr io.Writer = os.Stderr

// Setup installs the process-wide slog default: a text handler on stderr
// tee'd to sink. The returned LevelVar governs both outputs and may be
// changed at any time, e.g. on config reload.
func Setup(level slog.Level, sink Sink) *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(level)
	base := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lv})
	slog.SetDefault(slog.New(NewTeeHandler(base, lv, sink)))
	return lv
}

// DebuggerSink writes lines to the attached debugger (OutputDebugStringW on
// Windows, nothing elsewhere).
func DebuggerSink() Sink {
	return func(line string) {
		winapi.DebugString(DebuggerPrefix + line + "\n")
	}
}
