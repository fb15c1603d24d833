package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winkeylock/internal/config"
	"winkeylock/internal/hook"
	"winkeylock/internal/ipc"
	"winkeylock/internal/sessionlog"
	"winkeylock/internal/singleinstance"
)

func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func stubSend(t *testing.T, fn func(pipeName string, req ipc.Request) (ipc.Response, error)) {
	t.Helper()
	orig := sendFn
	t.Cleanup(func() { sendFn = orig })
	sendFn = fn
}

func TestCheckCommandOffline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := executeCmd(t, "--config", path, "check", "lwin")
	require.NoError(t, err)
	assert.Equal(t, "lwin: blocked (built-in defaults)\n", out)

	out, err = executeCmd(t, "--config", path, "check", "lwin+d")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed")
	assert.NoFileExists(t, path, "check never creates the policy file")

	_, err = executeCmd(t, "--config", path, "check", "ctrl+nope")
	require.Error(t, err)
}

func TestCheckCommandJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blacklist: [rwin]\nwhitelist: []\n"), 0o600))

	out, err := executeCmd(t, "--config", path, "check", "--json", "rwin")
	require.NoError(t, err)
	var result checkResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	abs, _ := filepath.Abs(path)
	assert.Equal(t, checkResult{Combo: "rwin", Blocked: true, Source: abs}, result)

	out, err = executeCmd(t, "--config", path, "check", "lwin")
	require.NoError(t, err)
	assert.Contains(t, out, "allowed")
}

func TestCheckCommandLive(t *testing.T) {
	stubSend(t, func(_ string, req ipc.Request) (ipc.Response, error) {
		require.Equal(t, ipc.CommandCheck, req.Command)
		require.Equal(t, []string{"lwin"}, req.Args)
		return ipc.OKResponse(req, checkResult{Combo: "lwin", Blocked: true, Source: "running instance"}), nil
	})

	out, err := executeCmd(t, "check", "--live", "lwin")
	require.NoError(t, err)
	assert.Equal(t, "lwin: blocked (running instance)\n", out)
}

func TestPolicyCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "winkeylock", "config.yaml")

	out, err := executeCmd(t, "--config", path, "policy", "add", "whitelist", "LWin+V")
	require.NoError(t, err)
	assert.Contains(t, out, "whitelist: added")
	require.FileExists(t, path)

	file, err := config.Load(path)
	require.NoError(t, err)
	assert.Contains(t, file.Whitelist, "lwin+v")

	out, err = executeCmd(t, "--config", path, "policy", "add", "allow", "lwin+v")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to add")

	out, err = executeCmd(t, "--config", path, "policy", "remove", "blacklist", "rwin")
	require.NoError(t, err)
	assert.Contains(t, out, "blacklist: removed")

	out, err = executeCmd(t, "--config", path, "policy", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "blacklist:     lwin\n")
	assert.Contains(t, out, "lwin+v")

	_, err = executeCmd(t, "--config", path, "policy", "add", "greylist", "lwin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown policy list")
}

func TestPolicyEditRefusesMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	broken := []byte("blacklist: [lwin\n")
	require.NoError(t, os.WriteFile(path, broken, 0o600))

	_, err := executeCmd(t, "--config", path, "policy", "add", "blacklist", "rwin")
	require.Error(t, err)

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, broken, got, "malformed file is left for the user to fix")
}

func TestConfigPathCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	out, err := executeCmd(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, "config: "+path+"\nlog:    "+filepath.Join(dir, "winkeylock.log")+"\n", out)
}

func TestControlCommandsWhenNotRunning(t *testing.T) {
	stubSend(t, func(string, ipc.Request) (ipc.Response, error) {
		return ipc.Response{}, &net.OpError{Op: "dial", Net: "pipe", Err: errors.New("file not found")}
	})

	for _, args := range [][]string{{"status"}, {"reload"}, {"check", "--live", "lwin"}} {
		_, err := executeCmd(t, args...)
		assert.ErrorIs(t, err, errNotRunning, "%v", args)
	}
}

func TestReloadCommand(t *testing.T) {
	stubSend(t, func(_ string, req ipc.Request) (ipc.Response, error) {
		return ipc.OKResponse(req, config.Status{
			Path:      `C:\Users\me\AppData\Roaming\winkeylock\config.yaml`,
			Blacklist: []string{"lwin", "rwin"},
			Whitelist: []string{"lwin+d"},
		}), nil
	})

	out, err := executeCmd(t, "reload")
	require.NoError(t, err)
	assert.Equal(t, `reloaded C:\Users\me\AppData\Roaming\winkeylock\config.yaml (2 blacklist, 1 whitelist entries)`+"\n", out)
}

func TestReloadCommandErrorResponse(t *testing.T) {
	stubSend(t, func(_ string, req ipc.Request) (ipc.Response, error) {
		return ipc.ErrorResponse(req, errNoConfigManager), nil
	})

	_, err := executeCmd(t, "reload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reload failed")
	assert.Contains(t, err.Error(), "fallback mode")
}

func TestStatusCommand(t *testing.T) {
	report := statusReport{
		PID:           4242,
		Version:       version,
		Uptime:        "1h2m3s",
		HookInstalled: true,
		Config: &config.Status{
			Path:         `C:\cfg\config.yaml`,
			DetectMethod: "notification_state",
			Watching:     true,
			Reloads:      2,
			Blacklist:    []string{"lwin", "rwin"},
			Whitelist:    []string{"lwin+d"},
		},
		Stats: hook.Stats{Events: 10, Suppressed: 3, Injected: 1},
		Recent: []sessionlog.Entry{
			{Time: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), Level: "WARN", Component: "HOOK", Message: "compensating tap failed", Error: "SendInput: access denied"},
		},
	}
	stubSend(t, func(_ string, req ipc.Request) (ipc.Response, error) {
		return ipc.OKResponse(req, report), nil
	})

	out, err := executeCmd(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "pid 4242, up 1h2m3s")
	assert.Contains(t, out, "installed")
	assert.Contains(t, out, "policy, detect notification_state")
	assert.Contains(t, out, "watching, 2 reloads")
	assert.Contains(t, out, "suppressed 3, injected 1")
	assert.Contains(t, out, "15:04:05 WARN  hook: compensating tap failed (SendInput: access denied)")

	out, err = executeCmd(t, "status", "--json")
	require.NoError(t, err)
	var decoded statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, report.PID, decoded.PID)
	assert.Equal(t, report.Stats, decoded.Stats)
}

func TestWriteStatusFallbackMode(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeStatus(&out, statusReport{Version: version, FallbackMode: true}))
	assert.Contains(t, out.String(), "fallback (config unavailable)")
	assert.NotContains(t, out.String(), "blacklist")
}

func TestRunReportsRunningInstance(t *testing.T) {
	h := installLifecycleSeams(t)
	h.lockErrs = []error{singleinstance.ErrAlreadyRunning}
	stubSend(t, func(_ string, req ipc.Request) (ipc.Response, error) {
		return ipc.OKResponse(req, pingReply{PID: 77, Version: version}), nil
	})

	out, err := executeCmd(t, "--config", h.configPath, "run")
	require.NoError(t, err)
	assert.Equal(t, "winkeylock is already running (pid 77)\n", out)
}

func TestAutostartCommands(t *testing.T) {
	origEnabled, origEnable, origDisable, origCommand := autostartEnabledFn, autostartEnableFn, autostartDisableFn, autostartCommandFn
	t.Cleanup(func() {
		autostartEnabledFn, autostartEnableFn, autostartDisableFn, autostartCommandFn = origEnabled, origEnable, origDisable, origCommand
	})

	registered := map[string]string{}
	autostartEnabledFn = func(name string) (bool, error) {
		_, ok := registered[name]
		return ok, nil
	}
	autostartEnableFn = func(name, command string) error {
		registered[name] = command
		return nil
	}
	autostartDisableFn = func(name string) error {
		delete(registered, name)
		return nil
	}
	autostartCommandFn = func(args ...string) (string, error) {
		return strings.Join(append([]string{`"C:\bin\winkeylock.exe"`}, args...), " "), nil
	}

	out, err := executeCmd(t, "autostart", "status")
	require.NoError(t, err)
	assert.Equal(t, "autostart: disabled\n", out)

	path := filepath.Join(t.TempDir(), "config.yaml")
	out, err = executeCmd(t, "--config", path, "autostart", "enable")
	require.NoError(t, err)
	assert.Contains(t, out, "autostart: enabled")
	assert.Equal(t, `"C:\bin\winkeylock.exe" --config `+path, registered["winkeylock"])

	out, err = executeCmd(t, "autostart", "status")
	require.NoError(t, err)
	assert.Equal(t, "autostart: enabled\n", out)

	_, err = executeCmd(t, "autostart", "disable")
	require.NoError(t, err)
	assert.Empty(t, registered)
}
