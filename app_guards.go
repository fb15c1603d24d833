package main

import (
	"errors"

	"winkeylock/internal/config"
)

var errNoConfigManager = errors.New("config manager is not running (fallback mode)")

func (a *App) requireConfig() (*config.Manager, error) {
	if a.cfg == nil {
		return nil, errNoConfigManager
	}
	return a.cfg, nil
}
