package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winkeylock/internal/config"
	"winkeylock/internal/hook"
	"winkeylock/internal/ipc"
	"winkeylock/internal/logging"
	"winkeylock/internal/singleinstance"
	"winkeylock/internal/tray"
)

// NOTE: These tests replace package-level function variables. Do not use
// t.Parallel() here.

type fakePipe struct {
	executor ipc.CommandExecutor
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (p *fakePipe) Start() error {
	if p.startErr != nil {
		return p.startErr
	}
	p.started.Store(true)
	return nil
}

func (p *fakePipe) Stop() error {
	p.stopped.Store(true)
	return nil
}

func (p *fakePipe) Stats() ipc.ServerStats { return ipc.ServerStats{Requests: 3} }

type fakeTray struct {
	actions tray.Actions
	running chan struct{}
	closeCh chan struct{}
	once    sync.Once
}

func (f *fakeTray) Run(ctx context.Context) error {
	close(f.running)
	select {
	case <-ctx.Done():
	case <-f.closeCh:
	}
	return nil
}

func (f *fakeTray) Close() { f.once.Do(func() { close(f.closeCh) }) }

type lifecycleHarness struct {
	configPath string
	installed  atomic.Bool
	installErr error
	dispatcher *hook.Dispatcher
	pipe       *fakePipe
	tray       *fakeTray
	lockCalls  atomic.Int32
	lockErrs   []error
}

func installLifecycleSeams(t *testing.T) *lifecycleHarness {
	t.Helper()
	h := &lifecycleHarness{
		configPath: filepath.Join(t.TempDir(), "winkeylock", "config.yaml"),
		pipe:       &fakePipe{},
		tray:       &fakeTray{running: make(chan struct{}), closeCh: make(chan struct{})},
	}

	origLogger := slog.Default()
	origTryLock, origMutex := tryLockFn, defaultMutexFn
	origSetup, origInit := setupLoggingFn, initConfigFn
	origInstall, origUninstall, origInstalled := installHookFn, uninstallHookFn, hookInstalledFn
	origElevated, origPipe, origTray := isElevatedFn, newPipeServerFn, newTrayFn
	t.Cleanup(func() {
		slog.SetDefault(origLogger)
		tryLockFn, defaultMutexFn = origTryLock, origMutex
		setupLoggingFn, initConfigFn = origSetup, origInit
		installHookFn, uninstallHookFn, hookInstalledFn = origInstall, origUninstall, origInstalled
		isElevatedFn, newPipeServerFn, newTrayFn = origElevated, origPipe, origTray
	})

	defaultMutexFn = func() string { return `Local\winkeylock-test` }
	tryLockFn = func(string) (*singleinstance.Lock, error) {
		n := int(h.lockCalls.Add(1))
		if n <= len(h.lockErrs) && h.lockErrs[n-1] != nil {
			return nil, h.lockErrs[n-1]
		}
		return new(singleinstance.Lock), nil
	}
	setupLoggingFn = func(opts logging.Options) (*logging.Logger, error) {
		opts.Level = "debug"
		return logging.Setup(opts)
	}
	installHookFn = func(d *hook.Dispatcher) error {
		if h.installErr != nil {
			return h.installErr
		}
		h.dispatcher = d
		h.installed.Store(true)
		return nil
	}
	uninstallHookFn = func() error {
		if !h.installed.Swap(false) {
			return hook.ErrNotInstalled
		}
		return nil
	}
	hookInstalledFn = h.installed.Load
	isElevatedFn = func() bool { return false }
	newPipeServerFn = func(executor ipc.CommandExecutor) pipeServer {
		h.pipe.executor = executor
		return h.pipe
	}
	newTrayFn = func(_ string, actions tray.Actions) trayRunner {
		h.tray.actions = actions
		return h.tray
	}
	return h
}

func startApp(t *testing.T, h *lifecycleHarness, opts cliOptions) (*App, context.CancelFunc, <-chan error) {
	t.Helper()
	opts.configPath = h.configPath
	app := NewApp(opts, []string{"run"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	t.Cleanup(cancel)
	return app, cancel, done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("App.Run did not return")
		return nil
	}
}

func TestAppRunLifecycle(t *testing.T) {
	h := installLifecycleSeams(t)
	_, cancel, done := startApp(t, h, cliOptions{})

	select {
	case <-h.tray.running:
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("tray never started")
	}

	require.True(t, h.installed.Load())
	require.True(t, h.pipe.started.Load())
	require.NotNil(t, h.dispatcher)
	assert.False(t, h.dispatcher.FallbackMode())
	assert.FileExists(t, h.configPath, "default policy written on first start")
	assert.FileExists(t, logging.PathFor(h.configPath))

	resp := h.pipe.executor.Execute(ipc.NewRequest(ipc.CommandStatus))
	require.True(t, resp.OK, resp.Error)
	var report statusReport
	require.NoError(t, resp.DecodeData(&report))
	assert.True(t, report.HookInstalled)
	assert.False(t, report.FallbackMode)
	require.NotNil(t, report.Pipe)
	assert.Equal(t, uint64(3), report.Pipe.Requests)
	require.NotNil(t, report.Config)
	assert.Equal(t, h.configPath, report.Config.Path)
	assert.Equal(t, []string{"lwin", "rwin"}, report.Config.Blacklist)

	resp = h.pipe.executor.Execute(ipc.NewRequest(ipc.CommandCheck, "lwin"))
	require.True(t, resp.OK, resp.Error)
	var result checkResult
	require.NoError(t, resp.DecodeData(&result))
	assert.Equal(t, checkResult{Combo: "lwin", Blocked: true, Source: "running instance"}, result)

	resp = h.pipe.executor.Execute(ipc.NewRequest(ipc.CommandReload))
	require.True(t, resp.OK, resp.Error)

	assert.Equal(t, "Blocking (notification_state)", h.tray.actions.Status())

	cancel()
	require.NoError(t, waitRun(t, done))
	assert.False(t, h.installed.Load(), "hook removed on shutdown")
	assert.True(t, h.pipe.stopped.Load())
}

func TestAppTrayQuitStopsRun(t *testing.T) {
	h := installLifecycleSeams(t)
	_, _, done := startApp(t, h, cliOptions{})
	<-h.tray.running

	h.tray.actions.Quit()
	require.NoError(t, waitRun(t, done))
	assert.False(t, h.installed.Load())
}

func TestAppInstallFailureIsFatal(t *testing.T) {
	h := installLifecycleSeams(t)
	h.installErr = fmt.Errorf("%w: SetWindowsHookExW: access denied", hook.ErrInstall)

	_, _, done := startApp(t, h, cliOptions{})
	err := waitRun(t, done)
	require.ErrorIs(t, err, hook.ErrInstall)
	assert.False(t, h.pipe.started.Load(), "pipe starts only after the hook")
}

func TestAppPipeFailureIsNotFatal(t *testing.T) {
	h := installLifecycleSeams(t)
	h.pipe.startErr = errors.New("pipe busy")

	_, cancel, done := startApp(t, h, cliOptions{})
	<-h.tray.running
	assert.True(t, h.installed.Load())

	cancel()
	require.NoError(t, waitRun(t, done))
	assert.False(t, h.pipe.stopped.Load(), "a pipe that never started is not stopped")
}

func TestAppFallbackModeWhenConfigUnavailable(t *testing.T) {
	h := installLifecycleSeams(t)
	initConfigFn = func(context.Context, string) (*config.Manager, error) {
		return nil, errors.New("create config dir: access denied")
	}

	app, cancel, done := startApp(t, h, cliOptions{})
	<-h.tray.running
	assert.True(t, h.dispatcher.FallbackMode())

	resp := app.Execute(ipc.NewRequest(ipc.CommandReload))
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "fallback mode")

	resp = app.Execute(ipc.NewRequest(ipc.CommandStatus))
	require.True(t, resp.OK)
	var report statusReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.True(t, report.FallbackMode)
	assert.Nil(t, report.Config)
	assert.Equal(t, "Fallback mode: config unavailable", h.tray.actions.Status())

	cancel()
	require.NoError(t, waitRun(t, done))
}

func TestAppSingleInstance(t *testing.T) {
	tests := []struct {
		name      string
		restart   bool
		lockErrs  []error
		wantErr   error
		wantCalls int32
	}{
		{
			name:      "second instance exits",
			lockErrs:  []error{singleinstance.ErrAlreadyRunning},
			wantErr:   singleinstance.ErrAlreadyRunning,
			wantCalls: 1,
		},
		{
			name:      "elevated restart waits for the lock",
			restart:   true,
			lockErrs:  []error{singleinstance.ErrAlreadyRunning, singleinstance.ErrAlreadyRunning},
			wantCalls: 3,
		},
		{
			name:      "mutex failure proceeds unguarded",
			lockErrs:  []error{errors.New("access denied")},
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := installLifecycleSeams(t)
			h.lockErrs = tt.lockErrs

			_, cancel, done := startApp(t, h, cliOptions{elevatedRestart: tt.restart})
			if tt.wantErr != nil {
				require.ErrorIs(t, waitRun(t, done), tt.wantErr)
				assert.False(t, h.installed.Load())
			} else {
				<-h.tray.running
				cancel()
				require.NoError(t, waitRun(t, done))
			}
			assert.Equal(t, tt.wantCalls, h.lockCalls.Load())
		})
	}
}

func TestExecuteRejectsUnknownCommand(t *testing.T) {
	app := NewApp(cliOptions{}, nil)
	resp := app.Execute(ipc.NewRequest("shutdown"))
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, `unknown command "shutdown"`)

	resp = app.Execute(ipc.NewRequest(ipc.CommandPing))
	require.True(t, resp.OK)
	var reply pingReply
	require.NoError(t, resp.DecodeData(&reply))
	assert.Equal(t, version, reply.Version)
}

func TestWaitWithTimeout(t *testing.T) {
	assert.True(t, waitWithTimeout(func() {}, time.Second))

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	assert.False(t, waitWithTimeout(func() { <-block }, 10*time.Millisecond))
}
