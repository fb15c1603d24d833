package hook

import "errors"

var (
	// ErrInstall wraps every failure to install the system hook.
	ErrInstall = errors.New("install keyboard hook")
	// ErrAlreadyInstalled is returned by Install while a hook is active.
	ErrAlreadyInstalled = errors.New("keyboard hook already installed")
	// ErrNotInstalled is returned by Uninstall when no hook is active.
	ErrNotInstalled = errors.New("keyboard hook not installed")

	errNoInjector = errors.New("no injector configured")
)
