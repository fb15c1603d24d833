package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"winkeylock/internal/detect"
	"winkeylock/internal/keycombo"
	"winkeylock/internal/policy"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	// Use a short linear backoff: baseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond

	appDirName     = "winkeylock"
	configFileName = "config.yaml"
)

// Test seams.
var userConfigDirFn = os.UserConfigDir
var userHomeDirFn = os.UserHomeDir

var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := make([]string, len(defaultPathWarningState.messages))
	copy(out, defaultPathWarningState.messages)
	defaultPathWarningState.messages = nil
	return out
}

// File is the on-disk policy document.
//
// A list key that is missing from the document takes its default; an
// explicitly empty list stays empty.
type File struct {
	DetectMethod detect.Method `yaml:"detect_method"`
	Blacklist    []string      `yaml:"blacklist"`
	Whitelist    []string      `yaml:"whitelist"`
}

// DefaultFile returns the document written when no policy file exists.
func DefaultFile() File {
	return File{
		DetectMethod: detect.NotificationState,
		Blacklist:    cloneStringSlice(policy.DefaultBlacklist),
		Whitelist:    cloneStringSlice(policy.DefaultWhitelist),
	}
}

// Policy parses both lists. The whole document is rejected on the first
// invalid entry.
func (f File) Policy() (*policy.Set, error) {
	return policy.FromStrings(f.Blacklist, f.Whitelist)
}

// Clone returns a deep copy of f.
func (f File) Clone() File {
	return File{
		DetectMethod: f.DetectMethod,
		Blacklist:    cloneStringSlice(f.Blacklist),
		Whitelist:    cloneStringSlice(f.Whitelist),
	}
}

func cloneStringSlice(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

// DefaultPath resolves <user config dir>/winkeylock/config.yaml, falling back
// to ~/.config and then to os.TempDir() when neither can be resolved.
// The temp-dir fallback is not a stable persistence location.
func DefaultPath() string {
	base, err := userConfigDirFn()
	if err != nil || strings.TrimSpace(base) == "" {
		home, homeErr := userHomeDirFn()
		if homeErr != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", errors.Join(err, homeErr))
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve the user config and home directories. Using temp directory; policy changes may not persist.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, configFileName)
}

// Load reads the policy file. A missing or empty file yields the defaults
// with a nil error. A malformed file yields the defaults and the parse error.
func Load(path string) (File, error) {
	cfg := DefaultFile()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}

	var parsed File
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultFile(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if parsed.Blacklist == nil {
		parsed.Blacklist = cfg.Blacklist
	}
	if parsed.Whitelist == nil {
		parsed.Whitelist = cfg.Whitelist
	}
	return parsed, nil
}

// EnsureFile writes the default document if path does not exist and returns
// the loaded document. An existing file is never rewritten here, even when
// it fails to parse.
func EnsureFile(path string) (File, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
		slog.Info("[DEBUG-CONFIG] wrote default config", "path", path)
	}
	return cfg, nil
}

// Save validates cfg and writes it atomically. Entries are stored in
// canonical form. Returns the document that was actually written.
func Save(path string, cfg File) (File, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return cfg, errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return cfg, fmt.Errorf("save config: resolve path: %w", err)
	}

	set, err := cfg.Policy()
	if err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}
	normalized := File{DetectMethod: cfg.DetectMethod}
	normalized.Blacklist, normalized.Whitelist = set.Strings()

	raw, err := yaml.Marshal(normalized)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(absolutePath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", absolutePath)
	return normalized, nil
}

// List names one of the two policy lists.
type List string

const (
	Blacklist List = "blacklist"
	Whitelist List = "whitelist"
)

// ParseList accepts "blacklist"/"block" and "whitelist"/"allow".
func ParseList(name string) (List, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "blacklist", "block":
		return Blacklist, nil
	case "whitelist", "allow":
		return Whitelist, nil
	}
	return "", fmt.Errorf("unknown policy list %q (want blacklist or whitelist)", name)
}

func (f *File) list(which List) *[]string {
	if which == Whitelist {
		return &f.Whitelist
	}
	return &f.Blacklist
}

// Add appends spec in canonical form unless an equal combination is already
// listed. Reports whether the list changed.
func (f *File) Add(which List, spec string) (bool, error) {
	combo, err := keycombo.Parse(spec)
	if err != nil {
		return false, err
	}
	entries := f.list(which)
	for _, existing := range *entries {
		if other, err := keycombo.Parse(existing); err == nil && other.Equal(combo) {
			return false, nil
		}
	}
	*entries = append(*entries, combo.String())
	return true, nil
}

// Remove deletes every entry equal to spec. Unparseable entries are kept.
// Reports whether the list changed.
func (f *File) Remove(which List, spec string) (bool, error) {
	combo, err := keycombo.Parse(spec)
	if err != nil {
		return false, err
	}
	entries := f.list(which)
	kept := make([]string, 0, len(*entries))
	for _, existing := range *entries {
		if other, err := keycombo.Parse(existing); err == nil && other.Equal(combo) {
			continue
		}
		kept = append(kept, existing)
	}
	changed := len(kept) != len(*entries)
	*entries = kept
	return changed, nil
}

// atomicWrite writes data using temp-file + rename to avoid partial writes
// and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
