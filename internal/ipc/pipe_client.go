package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	pipeDialTimeout      = 2 * time.Second
	pipeRoundTripTimeout = pipeConnDeadline + time.Second
	maxPipeResponseBytes = 1024
)

// dialPipeFn is a test seam; tests substitute a loopback dialer.
var dialPipeFn = dialPipe

// Send delivers req to the switcher listening on pipeName (the default
// per-user pipe when empty) and returns its reply. Dial failures are
// returned unwrapped so IsConnectionError can classify them.
func Send(pipeName string, req Request) (Response, error) {
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}

	conn, err := dialPipeFn(pipeName, pipeDialTimeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(pipeRoundTripTimeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	if err := writeFrame(conn, req); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", req.Command, err)
	}

	raw, err := readLine(conn, maxPipeResponseBytes)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("invalid response: %w", err)
	}
	return resp, nil
}

// IsConnectionError reports whether err means no switcher is listening.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnsupported) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "open"
	}
	return false
}
