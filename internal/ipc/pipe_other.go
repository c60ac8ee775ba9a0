//go:build !windows

package ipc

import (
	"net"
	"time"
)

func listenPipeWithCurrentUserDACL(_ string) (net.Listener, error) {
	return nil, ErrUnsupported
}

func dialPipe(_ string, _ time.Duration) (net.Conn, error) {
	return nil, ErrUnsupported
}
