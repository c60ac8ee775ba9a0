package ipc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	// pipeConnDeadline bounds one request/response exchange. It must outlast
	// the executor's own reply timeout.
	pipeConnDeadline    = 5 * time.Second
	maxPipeRequestBytes = 1024
	acceptBackoffMin    = 50 * time.Millisecond
	acceptBackoffMax    = 2 * time.Second
)

// listenPipeFn is a test seam; tests substitute a loopback listener.
var listenPipeFn = listenPipeWithCurrentUserDACL

// PipeServer answers sameappctl requests on a named pipe. Connections are
// served one at a time since every command ends up on the single event
// thread anyway.
type PipeServer struct {
	pipeName string
	exec     CommandExecutor

	mu       sync.Mutex
	listener net.Listener
	closing  chan struct{}
	served   sync.WaitGroup
}

// NewPipeServer creates a server for pipeName, or the default per-user pipe
// when pipeName is empty.
func NewPipeServer(pipeName string, exec CommandExecutor) *PipeServer {
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}
	return &PipeServer{pipeName: pipeName, exec: exec}
}

// PipeName returns the listen pipe name.
func (s *PipeServer) PipeName() string {
	return s.pipeName
}

// Start opens the pipe and serves requests in the background.
func (s *PipeServer) Start() error {
	if s.exec == nil {
		return errors.New("pipe server: nil executor")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("pipe server: already started")
	}

	ln, err := listenPipeFn(s.pipeName)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.pipeName, err)
	}
	s.listener = ln
	s.closing = make(chan struct{})
	s.served.Add(1)
	go s.serve(ln, s.closing)
	slog.Debug("[DEBUG-IPC] control pipe listening", "pipe", s.pipeName)
	return nil
}

// Stop closes the pipe and waits for the request in flight, if any.
func (s *PipeServer) Stop() error {
	s.mu.Lock()
	ln, closing := s.listener, s.closing
	s.listener, s.closing = nil, nil
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	close(closing)
	err := ln.Close()
	s.served.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close %s: %w", s.pipeName, err)
	}
	return nil
}

func (s *PipeServer) serve(ln net.Listener, closing <-chan struct{}) {
	defer s.served.Done()
	backoff := acceptBackoffMin
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-closing:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("[WARN-IPC] accept failed", "error", err, "retryIn", backoff)
			select {
			case <-closing:
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, acceptBackoffMax)
			continue
		}
		backoff = acceptBackoffMin
		s.handle(conn)
	}
}

// handle serves one request per connection.
func (s *PipeServer) handle(conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(pipeConnDeadline)); err != nil {
		slog.Warn("[WARN-IPC] failed to set connection deadline", "error", err)
		return
	}

	raw, err := readLine(conn, maxPipeRequestBytes)
	if errors.Is(err, io.EOF) {
		slog.Debug("[DEBUG-IPC] client closed without a request")
		return
	}
	var resp Response
	if err != nil {
		resp = ErrorResponse("invalid request: %v", err)
	} else if req, decodeErr := decodeRequest(raw); decodeErr != nil {
		resp = ErrorResponse("invalid request: %v", decodeErr)
	} else {
		slog.Debug("[DEBUG-IPC] control request", "command", req.Command)
		resp = s.exec.Execute(req)
	}

	if err := writeFrame(conn, resp); err != nil {
		slog.Debug("[DEBUG-IPC] failed to write response", "error", err)
	}
}
