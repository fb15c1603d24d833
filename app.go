package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"winkeylock/internal/config"
	"winkeylock/internal/detect"
	"winkeylock/internal/elevation"
	"winkeylock/internal/hook"
	"winkeylock/internal/inject"
	"winkeylock/internal/ipc"
	"winkeylock/internal/logging"
	"winkeylock/internal/singleinstance"
	"winkeylock/internal/tray"
)

// trayRunner is the part of *tray.Tray the app drives.
type trayRunner interface {
	Run(ctx context.Context) error
	Close()
}

// pipeServer is the part of *ipc.PipeServer the app drives.
type pipeServer interface {
	Start() error
	Stop() error
	Stats() ipc.ServerStats
}

var (
	tryLockFn         = singleinstance.TryLock
	defaultMutexFn    = singleinstance.DefaultMutexName
	setupLoggingFn    = logging.Setup
	initConfigFn      = config.Initialize
	newDesktopFn      = detect.NewDesktop
	newInjectorFn     = inject.New
	installHookFn     = hook.Install
	uninstallHookFn   = hook.Uninstall
	hookInstalledFn   = hook.Installed
	isElevatedFn      = elevation.IsElevated
	relaunchElevateFn = elevation.Relaunch
	newPipeServerFn   = func(executor ipc.CommandExecutor) pipeServer { return ipc.NewPipeServer("", executor) }
	newTrayFn         = func(tooltip string, actions tray.Actions) trayRunner { return tray.New(tooltip, actions) }
)

const (
	shutdownWaitTimeout = 5 * time.Second
	// lockTakeoverTimeout bounds how long an elevated relaunch waits for the
	// instance that started it to exit.
	lockTakeoverTimeout = 10 * time.Second
	lockRetryInterval   = 100 * time.Millisecond
)

// App is the running instance: hook, policy, control pipe and tray.
//
// Fields are written during startup before any background goroutine starts
// and only read afterwards, except where noted.
type App struct {
	opts cliOptions
	args []string

	lock       *singleinstance.Lock
	logger     *logging.Logger
	cfg        *config.Manager
	dispatcher *hook.Dispatcher
	pipe       pipeServer
	tray       trayRunner
	elevated   bool
	startedAt  time.Time

	cancel         context.CancelFunc
	bgWG           sync.WaitGroup
	shuttingDown   atomic.Bool
	workerRestarts atomic.Int64
}

// NewApp creates the app. args are the command-line arguments re-used for an
// elevated relaunch.
func NewApp(opts cliOptions, args []string) *App {
	return &App{opts: opts, args: append([]string(nil), args...)}
}

// configPath is the active policy file, or the configured one when the
// manager failed to start.
func (a *App) configPath() string {
	if a.cfg != nil {
		return a.cfg.ConfigPath()
	}
	return resolveConfigPath(a.opts.configPath)
}
