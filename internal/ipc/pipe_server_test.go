package ipc

import (
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// startLoopbackServer runs a PipeServer over TCP loopback so the accept and
// dispatch paths are exercised on every platform.
func startLoopbackServer(t *testing.T, executor CommandExecutor) *PipeServer {
	t.Helper()

	var addr string
	origListen, origDial := listenFn, dialFn
	listenFn = func(string) (net.Listener, error) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err == nil {
			addr = l.Addr().String()
		}
		return l, err
	}
	dialFn = func(_ string, timeout time.Duration) (net.Conn, error) {
		return net.DialTimeout("tcp", addr, timeout)
	}
	t.Cleanup(func() {
		listenFn = origListen
		dialFn = origDial
	})

	server := NewPipeServer("loopback", executor)
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func TestPipeServerRoundTrip(t *testing.T) {
	server := startLoopbackServer(t, ExecutorFunc(func(req Request) Response {
		switch req.Command {
		case CommandPing:
			return OKResponse(req, map[string]string{"reply": "pong"})
		case CommandCheck:
			return OKResponse(req, map[string]any{"combo": strings.Join(req.Args, " "), "blocked": true})
		default:
			return ErrorResponse(req, errors.New("unknown command"))
		}
	}))

	req := NewRequest(CommandPing)
	resp, err := Send(server.PipeName(), req)
	if err != nil {
		t.Fatalf("Send(ping) error = %v", err)
	}
	if resp.ID != req.ID || !resp.OK {
		t.Fatalf("Send(ping) = %+v, want ok response with id %q", resp, req.ID)
	}
	var pong map[string]string
	if err := resp.DecodeData(&pong); err != nil || pong["reply"] != "pong" {
		t.Fatalf("DecodeData() = %v, %v", pong, err)
	}

	resp, err = Send(server.PipeName(), NewRequest("bogus"))
	if err != nil {
		t.Fatalf("Send(bogus) error = %v", err)
	}
	if resp.OK || resp.Error != "unknown command" {
		t.Fatalf("Send(bogus) = %+v, want error response", resp)
	}
	if err := resp.DecodeData(&pong); err == nil {
		t.Fatal("DecodeData() on error response should fail")
	}

	if got, want := server.Stats(), (ServerStats{Requests: 2, Failed: 1}); got != want {
		t.Fatalf("Stats() = %+v, want %+v", got, want)
	}
}

func TestPipeServerRecoversExecutorPanic(t *testing.T) {
	var calls atomic.Int32
	server := startLoopbackServer(t, ExecutorFunc(func(req Request) Response {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return OKResponse(req, nil)
	}))

	resp, err := Send(server.PipeName(), NewRequest(CommandStatus))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.OK || !strings.Contains(resp.Error, "internal error") {
		t.Fatalf("Send() = %+v, want internal error", resp)
	}

	resp, err = Send(server.PipeName(), NewRequest(CommandStatus))
	if err != nil || !resp.OK {
		t.Fatalf("second Send() = %+v, %v; server should keep serving", resp, err)
	}
}

func TestPipeServerRejectsMalformedRequest(t *testing.T) {
	server := startLoopbackServer(t, ExecutorFunc(func(req Request) Response {
		t.Errorf("executor called for malformed request %+v", req)
		return OKResponse(req, nil)
	}))

	conn, err := dialFn(server.PipeName(), time.Second)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(`{"id":"x","command":"  "}` + "\n")); err != nil {
		t.Fatalf("write error = %v", err)
	}
	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if !strings.Contains(string(buf[:n]), "command is required") {
		t.Fatalf("response = %q, want command validation error", string(buf[:n]))
	}
}

func TestPipeServerStartStop(t *testing.T) {
	server := startLoopbackServer(t, ExecutorFunc(func(req Request) Response { return OKResponse(req, nil) }))

	if err := server.Start(); err == nil {
		t.Fatal("second Start() should fail")
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestPipeServerRequiresExecutor(t *testing.T) {
	server := NewPipeServer("unused", nil)
	if err := server.Start(); err == nil {
		t.Fatal("Start() without executor should fail")
	}
}
