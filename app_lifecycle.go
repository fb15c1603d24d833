package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"winkeylock/internal/config"
	"winkeylock/internal/detect"
	"winkeylock/internal/hook"
	"winkeylock/internal/logging"
	"winkeylock/internal/singleinstance"
	"winkeylock/internal/workerutil"
)

// Run starts every component, blocks until ctx is cancelled or the tray
// asks to quit, then tears everything down in reverse order. A hook that
// cannot be installed is the only fatal startup error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	defer cancel()

	if err := a.startup(ctx); err != nil {
		a.shutdown()
		return err
	}
	<-ctx.Done()
	a.shutdown()
	return nil
}

func (a *App) startup(ctx context.Context) error {
	lock, err := a.acquireLock(ctx)
	if err != nil {
		return err
	}
	a.lock = lock
	a.startedAt = time.Now()

	path := resolveConfigPath(a.opts.configPath)
	logger, err := setupLoggingFn(logging.Options{
		Path:   logging.PathFor(path),
		Level:  a.opts.logLevel,
		Format: a.opts.logFormat,
		Stderr: a.opts.logStderr,
	})
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	a.logger = logger
	for _, message := range config.ConsumeDefaultPathWarnings() {
		slog.Warn("[WARN-CONFIG] " + message)
	}
	a.elevated = isElevatedFn()
	slog.Info("[DEBUG-APP] starting", "version", version, "pid", os.Getpid(), "elevated", a.elevated, "mutex", a.lock.Name())

	cfg, err := initConfigFn(ctx, path)
	if err != nil {
		slog.Error("[WARN-CONFIG] config manager unavailable, running in fallback mode", "path", path, "error", err)
	} else {
		a.cfg = cfg
	}

	a.dispatcher = a.newDispatcher()
	workerutil.RunWithPanicRecovery(ctx, "decision-logger", &a.bgWG, func(ctx context.Context) {
		hook.LogDecisions(ctx, a.dispatcher)
	}, workerutil.RecoveryOptions{
		IsShutdown: a.shuttingDown.Load,
		OnPanic:    func(string, int) { a.workerRestarts.Add(1) },
	})

	if err := installHookFn(a.dispatcher); err != nil {
		return err
	}

	a.pipe = newPipeServerFn(a)
	if err := a.pipe.Start(); err != nil {
		slog.Warn("[WARN-IPC] control pipe unavailable, status and reload commands disabled", "error", err)
		a.pipe = nil
	}

	a.tray = newTrayFn("winkeylock", a.trayActions())
	a.bgWG.Go(func() {
		if err := a.tray.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("[WARN-TRAY] tray icon unavailable", "error", err)
		}
	})
	return nil
}

func (a *App) newDispatcher() *hook.Dispatcher {
	desktop := newDesktopFn()
	method := detect.NotificationState
	// A nil *config.Manager must not become a non-nil PolicySource.
	var source hook.PolicySource
	if a.cfg != nil {
		method = a.cfg.DetectMethod()
		source = a.cfg
	}
	slog.Debug("[DEBUG-APP] context detector selected", "method", method.String(), "fallbackMode", source == nil)
	return hook.NewDispatcher(hook.Options{
		Policy:   source,
		Detector: detect.New(method, desktop),
		Fallback: detect.New(detect.NotificationState, desktop),
		Injector: newInjectorFn(),
	})
}

// acquireLock takes the single-instance mutex. After an elevated relaunch
// it waits for the previous instance to release it.
func (a *App) acquireLock(ctx context.Context) (*singleinstance.Lock, error) {
	name := defaultMutexFn()
	deadline := time.Now().Add(lockTakeoverTimeout)
	for {
		lock, err := tryLockFn(name)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, singleinstance.ErrAlreadyRunning) {
			// The hook still works without the guard.
			slog.Warn("[WARN-APP] mutex creation failed, proceeding without single-instance guard", "error", err)
			return nil, nil
		}
		if !a.opts.elevatedRestart || time.Now().After(deadline) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// shutdown releases everything startup acquired. Safe after a partial
// startup.
func (a *App) shutdown() {
	a.shuttingDown.Store(true)

	if a.tray != nil {
		a.tray.Close()
	}
	if a.pipe != nil {
		if err := a.pipe.Stop(); err != nil {
			slog.Warn("[WARN-IPC] pipe server stop failed", "error", err)
		}
	}
	if a.dispatcher != nil && hookInstalledFn() {
		if err := uninstallHookFn(); err != nil && !errors.Is(err, hook.ErrNotInstalled) {
			slog.Warn("[WARN-HOOK] uninstall failed", "error", err)
		}
	}
	if a.dispatcher != nil {
		stats := a.dispatcher.Stats()
		slog.Info("[DEBUG-APP] stopped",
			"events", stats.Events,
			"suppressed", stats.Suppressed,
			"injected", stats.Injected,
			"injectFailures", stats.InjectFailures,
		)
	}
	if a.cancel != nil {
		a.cancel()
	}
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		slog.Warn("[WARN-APP] timed out waiting for background workers during shutdown")
	}
	if a.cfg != nil {
		if err := a.cfg.Close(); err != nil {
			slog.Warn("[WARN-CONFIG] config manager close failed", "error", err)
		}
	}
	if a.lock != nil {
		if err := a.lock.Release(); err != nil {
			slog.Warn("[WARN-APP] mutex release failed", "error", err)
		}
		a.lock = nil
	}
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "winkeylock: close log file: %v\n", err)
		}
	}
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// The waiting goroutine may outlive timeout; only used during shutdown.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
