package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"sameappswitcher/internal/userutil"
)

var pipeNamePattern = regexp.MustCompile(`(?i)^\\\\\.\\pipe\\sameappswitcher-[a-z0-9._-]{1,128}$`)

const (
	defaultPipePrefix = `\\.\pipe\sameappswitcher-`
	pipeNameEnv       = "SAMEAPPSWITCHER_PIPE"
)

// ErrUnsupported is returned on platforms without named pipes.
var ErrUnsupported = errors.New("control pipe is currently supported only on Windows")

// Command is a control-channel verb.
type Command string

const (
	CommandStatus        Command = "status"
	CommandPause         Command = "pause"
	CommandResume        Command = "resume"
	CommandToggleRestore Command = "toggle-restore"
	CommandExit          Command = "exit"
)

// Commands lists every accepted verb.
func Commands() []Command {
	return []Command{CommandStatus, CommandPause, CommandResume, CommandToggleRestore, CommandExit}
}

// Valid reports whether c is a known verb.
func (c Command) Valid() bool {
	switch c {
	case CommandStatus, CommandPause, CommandResume, CommandToggleRestore, CommandExit:
		return true
	default:
		return false
	}
}

// Request is a single control command.
type Request struct {
	Command Command `json:"command"`
}

// Response reports the control state after the command was applied.
type Response struct {
	OK               bool   `json:"ok"`
	Paused           bool   `json:"paused"`
	RestoreMinimized bool   `json:"restore_minimized"`
	Error            string `json:"error,omitempty"`
}

// CommandExecutor applies a request and returns the resulting state.
type CommandExecutor interface {
	Execute(req Request) Response
}

// ErrorResponse builds a failed Response.
func ErrorResponse(format string, args ...any) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}

// DefaultPipeName returns the pipe path to use. If SAMEAPPSWITCHER_PIPE is
// set and passes pattern validation, its value is used; otherwise a per-user
// default is constructed from the current username.
func DefaultPipeName() string {
	if v, ok := trustedPipeNameFromEnv(); ok {
		return v
	}
	return defaultPipePrefix + userutil.CurrentUsername()
}

func trustedPipeNameFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(pipeNameEnv))
	if value == "" {
		return "", false
	}
	if !pipeNamePattern.MatchString(value) {
		slog.Warn("[WARN-IPC] pipe name override rejected: value does not match allowed pattern",
			"env", pipeNameEnv, "value", value)
		return "", false
	}
	return value, true
}

// writeFrame sends v as one JSON line.
func writeFrame(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	_, err = w.Write(append(raw, '\n'))
	return err
}

// readLine reads one newline-terminated frame of at most maxBytes. A final
// line without the delimiter is accepted; no data at all yields io.EOF.
func readLine(r io.Reader, maxBytes int) ([]byte, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256), maxBytes)
	if sc.Scan() {
		return sc.Bytes(), nil
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("frame exceeds %d bytes", maxBytes)
		}
		return nil, err
	}
	return nil, io.EOF
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Command = Command(strings.ToLower(strings.TrimSpace(string(req.Command))))
	if !req.Command.Valid() {
		return Request{}, fmt.Errorf("unknown command %q", req.Command)
	}
	return req, nil
}
