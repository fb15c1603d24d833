// Package ipc is the control channel between the CLI and the running
// instance: newline-delimited JSON over a per-user named pipe.
package ipc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"winkeylock/internal/userutil"
)

// Commands understood by the running instance.
const (
	CommandPing   = "ping"
	CommandStatus = "status"
	CommandReload = "reload"
	CommandCheck  = "check"
)

const (
	defaultPipePrefix = `\\.\pipe\`
	pipeNameEnv       = "WINKEYLOCK_PIPE"
)

var pipeNamePattern = regexp.MustCompile(`(?i)^\\\\\.\\pipe\\winkeylock-[a-z0-9._-]{1,128}$`)

// Request is one command sent to the running instance.
type Request struct {
	ID      string   `json:"id"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Response answers the Request with the same ID. Data holds a
// command-specific JSON document.
type Response struct {
	ID    string          `json:"id"`
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// CommandExecutor handles a request and returns a response.
type CommandExecutor interface {
	Execute(req Request) Response
}

// ExecutorFunc adapts a function to CommandExecutor.
type ExecutorFunc func(req Request) Response

func (f ExecutorFunc) Execute(req Request) Response { return f(req) }

// NewRequest builds a request with a fresh random ID.
func NewRequest(command string, args ...string) Request {
	return Request{ID: uuid.NewString(), Command: command, Args: args}
}

// OKResponse encodes data as the payload of a successful response.
func OKResponse(req Request, data any) Response {
	resp := Response{ID: req.ID, OK: true}
	if data == nil {
		return resp
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ErrorResponse(req, fmt.Errorf("encode %s result: %w", req.Command, err))
	}
	resp.Data = raw
	return resp
}

// ErrorResponse reports err for req.
func ErrorResponse(req Request, err error) Response {
	return Response{ID: req.ID, Error: err.Error()}
}

// DecodeData unmarshals the payload of a successful response into out.
func (r Response) DecodeData(out any) error {
	if !r.OK {
		return fmt.Errorf("remote error: %s", r.Error)
	}
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, out)
}

// DefaultPipeName returns the per-user pipe path. WINKEYLOCK_PIPE overrides
// it when it names a winkeylock pipe.
func DefaultPipeName() string {
	if v, ok := trustedPipeNameFromEnv(); ok {
		return v
	}
	return defaultPipePrefix + userutil.InstanceName("winkeylock")
}

func trustedPipeNameFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(pipeNameEnv))
	if value == "" {
		return "", false
	}
	if !pipeNamePattern.MatchString(value) {
		slog.Warn("[WARN-IPC] "+pipeNameEnv+" rejected: value does not match allowed pattern", "value", value)
		return "", false
	}
	return value, true
}

func encodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return Request{}, fmt.Errorf("command is required")
	}
	return req, nil
}

func encodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
