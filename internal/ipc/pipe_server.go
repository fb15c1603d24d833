package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultPipeConnTimeout              = 10 * time.Second
	maxPipeRequestBytes                 = 16 * 1024
	defaultPipeMaxConcurrentConnections = 8
	connSlotAcquireTimeout              = 2 * time.Second
	acceptErrorBackoffMax               = 2 * time.Second
)

// Test seam.
var listenFn = listenPipeWithCurrentUserDACL

// PipeServer answers control requests from the CLI, one request per
// connection.
type PipeServer struct {
	pipeName string
	executor CommandExecutor

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listener  net.Listener
	started   bool
	wg        sync.WaitGroup
	connSlots chan struct{}

	requests atomic.Uint64
	failed   atomic.Uint64
	rejected atomic.Uint64
}

// ServerStats counts the requests a PipeServer has answered. Failed
// counts error responses, including malformed requests. Rejected counts
// clients turned away because every connection slot was busy.
type ServerStats struct {
	Requests uint64 `json:"requests"`
	Failed   uint64 `json:"failed"`
	Rejected uint64 `json:"rejected"`
}

// NewPipeServer constructs a PipeServer. An empty pipeName selects
// DefaultPipeName.
func NewPipeServer(pipeName string, executor CommandExecutor) *PipeServer {
	ctx, cancel := context.WithCancel(context.Background())
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}
	return &PipeServer{
		pipeName:  pipeName,
		executor:  executor,
		ctx:       ctx,
		cancel:    cancel,
		connSlots: make(chan struct{}, defaultPipeMaxConcurrentConnections),
	}
}

// PipeName returns the listen pipe name.
func (s *PipeServer) PipeName() string {
	return s.pipeName
}

// Stats returns the request counters.
func (s *PipeServer) Stats() ServerStats {
	return ServerStats{
		Requests: s.requests.Load(),
		Failed:   s.failed.Load(),
		Rejected: s.rejected.Load(),
	}
}

// Start begins listening.
func (s *PipeServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("pipe server already started")
	}
	if s.executor == nil {
		return errors.New("pipe server requires an executor")
	}

	listener, err := listenFn(s.pipeName)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.pipeName, err)
	}

	s.listener = listener
	s.started = true
	s.wg.Go(s.acceptLoop)
	slog.Debug("[DEBUG-IPC] control pipe listening", "pipe", s.pipeName)
	return nil
}

// Stop closes the listener and waits for in-flight requests.
func (s *PipeServer) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	var closeErr error
	if listener != nil {
		closeErr = listener.Close()
	}
	s.wg.Wait()
	return closeErr
}

func (s *PipeServer) acceptLoop() {
	var backoff time.Duration
	for {
		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()
		if listener == nil {
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			backoff = min(max(2*backoff, 10*time.Millisecond), acceptErrorBackoffMax)
			slog.Warn("[WARN-IPC] accept failed", "error", err, "retryIn", backoff)
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		if !s.acquireConnectionSlot() {
			s.rejected.Add(1)
			s.writeResponse(conn, Response{Error: "server busy, try again later"})
			_ = conn.Close()
			continue
		}
		s.wg.Go(func() {
			defer s.releaseConnectionSlot()
			s.handleConnection(conn)
		})
	}
}

func (s *PipeServer) handleConnection(conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(defaultPipeConnTimeout)); err != nil {
		slog.Warn("[WARN-IPC] failed to set connection deadline", "error", err)
		return
	}

	reader := bufio.NewReaderSize(conn, maxPipeRequestBytes+1)
	rawReq, err := readDelimitedFrame(reader, maxPipeRequestBytes)
	if errors.Is(err, io.EOF) {
		slog.Debug("[DEBUG-IPC] client disconnected without sending data")
		return
	}
	if err != nil {
		s.writeResponse(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	req, err := decodeRequest(rawReq)
	if err != nil {
		s.writeResponse(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	slog.Debug("[DEBUG-IPC] request received", "id", req.ID, "command", req.Command, "args", req.Args)
	s.requests.Add(1)
	resp := s.execute(req)
	resp.ID = req.ID
	s.writeResponse(conn, resp)
}

// execute shields the listener from a panicking executor.
func (s *PipeServer) execute(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[WARN-IPC] executor panicked", "command", req.Command, "panic", r)
			resp = ErrorResponse(req, fmt.Errorf("internal error handling %q", req.Command))
		}
	}()
	return s.executor.Execute(req)
}

func (s *PipeServer) writeResponse(conn net.Conn, resp Response) {
	if !resp.OK {
		s.failed.Add(1)
	}
	rawResp, err := encodeResponse(resp)
	if err != nil {
		slog.Warn("[WARN-IPC] failed to encode response", "error", err)
		rawResp = []byte(`{"ok":false,"error":"internal encode error"}`)
	}
	if _, err := conn.Write(append(rawResp, '\n')); err != nil {
		slog.Debug("[DEBUG-IPC] failed to write response", "error", err)
	}
}

func (s *PipeServer) acquireConnectionSlot() bool {
	timer := time.NewTimer(connSlotAcquireTimeout)
	defer timer.Stop()
	select {
	case s.connSlots <- struct{}{}:
		return true
	case <-timer.C:
		slog.Warn("[WARN-IPC] connection slots exhausted, rejecting client")
		return false
	case <-s.ctx.Done():
		return false
	}
}

func (s *PipeServer) releaseConnectionSlot() {
	select {
	case <-s.connSlots:
	default:
		slog.Warn("[WARN-IPC] releaseConnectionSlot: no slot to release")
	}
}
