package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"winkeylock/internal/detect"
	"winkeylock/internal/keycombo"
	"winkeylock/internal/policy"
	"winkeylock/internal/workerutil"
)

// watchDebounce collapses the burst of events an editor produces on save.
// Test seam.
var watchDebounce = 250 * time.Millisecond

// Manager owns the active policy snapshot and keeps it in sync with the
// policy file.
//
// ShouldBlock is lock-free and safe to call from the hook thread. Reloads
// are serialized by reloadMu, which ShouldBlock never takes.
type Manager struct {
	path     string
	method   detect.Method
	snapshot atomic.Pointer[policy.Set]

	reloadMu   sync.Mutex
	lastErr    error
	lastReload time.Time
	reloads    int

	watcher     *fsnotify.Watcher
	watcherDead atomic.Bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closeOnce   sync.Once
	closeErr    error
}

// Status describes the manager for status reports.
type Status struct {
	Path         string    `json:"path"`
	DetectMethod string    `json:"detect_method"`
	Watching     bool      `json:"watching"`
	Reloads      int       `json:"reloads"`
	LastReload   time.Time `json:"last_reload"`
	LastError    string    `json:"last_error,omitempty"`
	Blacklist    []string  `json:"blacklist"`
	Whitelist    []string  `json:"whitelist"`
}

// Initialize loads the policy at path (DefaultPath when empty) and starts
// watching it. A missing file is created with defaults. An unreadable or
// malformed file leaves the defaults active and is not overwritten.
//
// Initialize fails only when the config directory cannot be created; a
// watcher that cannot start is logged and live reload is disabled.
func Initialize(ctx context.Context, path string) (*Manager, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absolutePath), 0o700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	m := &Manager{path: absolutePath}

	file, loadErr := EnsureFile(absolutePath)
	set, policyErr := file.Policy()
	switch {
	case loadErr != nil:
		slog.Warn("[WARN-CONFIG] config unusable, using built-in defaults", "path", absolutePath, "error", loadErr)
		m.lastErr = loadErr
		file, set = DefaultFile(), policy.Default()
	case policyErr != nil:
		slog.Warn("[WARN-CONFIG] invalid policy entry, using built-in defaults", "path", absolutePath, "error", policyErr)
		m.lastErr = policyErr
		file, set = DefaultFile(), policy.Default()
	}
	m.method = file.DetectMethod
	m.snapshot.Store(set)
	m.lastReload = time.Now()

	if err := m.startWatcher(ctx); err != nil {
		slog.Warn("[WARN-CONFIG] config watcher unavailable, live reload disabled", "path", absolutePath, "error", err)
	}

	black, white := set.Strings()
	slog.Info("[DEBUG-CONFIG] policy loaded",
		"path", absolutePath,
		"detectMethod", m.method.String(),
		"blacklist", black,
		"whitelist", white,
	)
	return m, nil
}

func (m *Manager) startWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace the file by rename, which drops a
	// watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return errors.Join(err, watcher.Close())
	}
	m.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	workerutil.RunWithPanicRecovery(watchCtx, "config-watcher", &m.wg, m.watchLoop, workerutil.RecoveryOptions{
		IsShutdown: func() bool { return watchCtx.Err() != nil },
		OnFatal: func(string, int) {
			m.watcherDead.Store(true)
			slog.Error("[WARN-CONFIG] config watcher stopped, live reload disabled", "path", m.path)
		},
	})
	return nil
}

func (m *Manager) watchLoop(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !m.isConfigEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("[WARN-CONFIG] watcher error", "error", err)
		case <-fire:
			fire = nil
			if err := m.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Debug("[DEBUG-CONFIG] watcher-triggered reload failed", "error", err)
			}
		}
	}
}

func (m *Manager) isConfigEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return strings.EqualFold(filepath.Base(event.Name), filepath.Base(m.path))
}

// Reload re-reads the policy file and publishes it. On any failure the
// previous snapshot stays active and the error is returned.
func (m *Manager) Reload() error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	if _, err := os.Stat(m.path); err != nil {
		m.lastErr = err
		slog.Warn("[WARN-CONFIG] config file unavailable, keeping previous policy", "path", m.path, "error", err)
		return fmt.Errorf("reload config: %w", err)
	}
	file, err := Load(m.path)
	if err != nil {
		m.lastErr = err
		slog.Warn("[WARN-CONFIG] reload failed, keeping previous policy", "path", m.path, "error", err)
		return err
	}
	set, err := file.Policy()
	if err != nil {
		m.lastErr = err
		slog.Warn("[WARN-CONFIG] reload rejected, keeping previous policy", "path", m.path, "error", err)
		return fmt.Errorf("reload config: %w", err)
	}
	if file.DetectMethod != m.method {
		slog.Warn("[WARN-CONFIG] detect_method change takes effect after restart",
			"active", m.method.String(), "configured", file.DetectMethod.String())
	}

	m.snapshot.Store(set)
	m.lastErr = nil
	m.lastReload = time.Now()
	m.reloads++

	black, white := set.Strings()
	slog.Info("[DEBUG-CONFIG] policy reloaded", "path", m.path, "blacklist", black, "whitelist", white)
	return nil
}

// ShouldBlock evaluates the current snapshot.
func (m *Manager) ShouldBlock(code keycombo.Code, mods keycombo.Modifiers) bool {
	return m.snapshot.Load().ShouldBlock(code, mods)
}

// Policy returns the current snapshot.
func (m *Manager) Policy() *policy.Set { return m.snapshot.Load() }

// DetectMethod returns the method chosen at startup.
func (m *Manager) DetectMethod() detect.Method { return m.method }

// ConfigPath returns the absolute policy file path.
func (m *Manager) ConfigPath() string { return m.path }

// Watching reports whether live reload is active.
func (m *Manager) Watching() bool { return m.watcher != nil && !m.watcherDead.Load() }

// Status returns a snapshot of the manager state.
func (m *Manager) Status() Status {
	m.reloadMu.Lock()
	lastErr, lastReload, reloads := m.lastErr, m.lastReload, m.reloads
	m.reloadMu.Unlock()

	black, white := m.Policy().Strings()
	status := Status{
		Path:         m.path,
		DetectMethod: m.method.String(),
		Watching:     m.Watching(),
		Reloads:      reloads,
		LastReload:   lastReload,
		Blacklist:    black,
		Whitelist:    white,
	}
	if lastErr != nil {
		status.LastError = lastErr.Error()
	}
	return status
}

// Close stops the watcher and waits for it to exit. Safe to call more than once.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()
		if m.watcher != nil {
			m.closeErr = m.watcher.Close()
		}
	})
	return m.closeErr
}
