package ipc

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "unsupported platform", err: ErrUnsupported, want: true},
		{name: "dial op error", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: true},
		{name: "read op error", err: &net.OpError{Op: "read", Err: errors.New("reset")}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		if got := IsConnectionError(tt.err); got != tt.want {
			t.Errorf("%s: IsConnectionError() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSendReportsInvalidResponse(t *testing.T) {
	useLoopbackTransport(t)
	ln, err := listenPipeFn("")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(time.Second))
		buf := make([]byte, 128)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("not json\n"))
	}()

	_, err = Send(`\\.\pipe\sameappswitcher-test`, Request{Command: CommandStatus})
	if err == nil {
		t.Fatal("Send() expected an error for a malformed response")
	}
	if IsConnectionError(err) {
		t.Fatalf("malformed response classified as connection error: %v", err)
	}
}
