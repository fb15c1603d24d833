package ipc

import (
	"strings"
	"testing"
)

func TestDefaultPipeNameHonorsTrustedEnvOverride(t *testing.T) {
	t.Setenv(pipeNameEnv, `\\.\pipe\winkeylock-ci_pipe`)

	if got := DefaultPipeName(); got != `\\.\pipe\winkeylock-ci_pipe` {
		t.Fatalf("DefaultPipeName() = %q, want trusted env override", got)
	}
}

func TestDefaultPipeNameRejectsUntrustedEnvOverride(t *testing.T) {
	t.Setenv(pipeNameEnv, `\\.\pipe\other-app`)
	t.Setenv("USERNAME", "unit-tester")

	if got := DefaultPipeName(); got != `\\.\pipe\winkeylock-unit-tester` {
		t.Fatalf("DefaultPipeName() = %q, want per-user default", got)
	}
}

func TestDefaultPipeNameSanitizesUsername(t *testing.T) {
	t.Setenv(pipeNameEnv, "")
	t.Setenv("USERNAME", "unit user!")

	if got, want := DefaultPipeName(), `\\.\pipe\winkeylock-unit_user_`; got != want {
		t.Fatalf("DefaultPipeName() = %q, want %q", got, want)
	}
}

func TestNewRequestAssignsUniqueIDs(t *testing.T) {
	a := NewRequest(CommandCheck, "win+r")
	b := NewRequest(CommandCheck, "win+r")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("NewRequest IDs = %q, %q; want distinct non-empty", a.ID, b.ID)
	}
	if a.Command != CommandCheck || len(a.Args) != 1 || a.Args[0] != "win+r" {
		t.Fatalf("NewRequest() = %+v", a)
	}
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr string
	}{
		{name: "trims command", raw: `{"id":"1","command":" status "}`, want: "status"},
		{name: "missing command", raw: `{"id":"1"}`, wantErr: "command is required"},
		{name: "invalid json", raw: `{"id":`, wantErr: "unexpected end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := decodeRequest([]byte(tt.raw))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("decodeRequest() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeRequest() error = %v", err)
			}
			if req.Command != tt.want {
				t.Fatalf("decodeRequest().Command = %q, want %q", req.Command, tt.want)
			}
		})
	}
}

func TestOKResponseEncodesData(t *testing.T) {
	req := NewRequest(CommandStatus)
	resp := OKResponse(req, struct {
		Installed bool `json:"installed"`
	}{Installed: true})
	if !resp.OK || resp.ID != req.ID {
		t.Fatalf("OKResponse() = %+v", resp)
	}
	if string(resp.Data) != `{"installed":true}` {
		t.Fatalf("OKResponse().Data = %s", resp.Data)
	}

	bad := OKResponse(req, func() {})
	if bad.OK || !strings.Contains(bad.Error, "encode status result") {
		t.Fatalf("OKResponse(unencodable) = %+v, want encode error", bad)
	}
}
