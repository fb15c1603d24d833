// Package userutil derives the per-user names of kernel objects (mutex,
// named pipe) so that two users on one machine each get their own instance.
package userutil

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

var invalidUsernameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Test seams.
var (
	getenvFn      = os.Getenv
	currentUserFn = user.Current
)

// SanitizeUsername normalizes username-like values used in pipe/mutex names.
func SanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidUsernameRune.ReplaceAllString(value, "_")
}

// CurrentUsername returns %USERNAME%, falling back to the account name of the
// process owner, or "" when neither is available.
func CurrentUsername() string {
	if name := strings.TrimSpace(getenvFn("USERNAME")); name != "" {
		return name
	}
	if current, err := currentUserFn(); err == nil {
		return current.Username
	}
	return ""
}

// InstanceName returns "<prefix>-<sanitized user>".
func InstanceName(prefix string) string {
	return prefix + "-" + SanitizeUsername(CurrentUsername())
}
