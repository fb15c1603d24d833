package main

import (
	"os"
	"time"

	"winkeylock/internal/config"
	"winkeylock/internal/hook"
	"winkeylock/internal/ipc"
	"winkeylock/internal/sessionlog"
)

// statusReport is the payload of a status response.
type statusReport struct {
	PID            int                `json:"pid"`
	Version        string             `json:"version"`
	StartedAt      time.Time          `json:"started_at"`
	Uptime         string             `json:"uptime"`
	Elevated       bool               `json:"elevated"`
	HookInstalled  bool               `json:"hook_installed"`
	FallbackMode   bool               `json:"fallback_mode"`
	Config         *config.Status     `json:"config,omitempty"`
	Stats          hook.Stats         `json:"stats"`
	Pipe           *ipc.ServerStats   `json:"pipe,omitempty"`
	WorkerRestarts int64              `json:"worker_restarts,omitempty"`
	Recent         []sessionlog.Entry `json:"recent,omitempty"`
}

func (a *App) statusReport() statusReport {
	report := statusReport{
		PID:            os.Getpid(),
		Version:        version,
		StartedAt:      a.startedAt,
		Uptime:         time.Since(a.startedAt).Round(time.Second).String(),
		Elevated:       a.elevated,
		HookInstalled:  hookInstalledFn(),
		FallbackMode:   a.cfg == nil,
		WorkerRestarts: a.workerRestarts.Load(),
	}
	if a.cfg != nil {
		status := a.cfg.Status()
		report.Config = &status
	}
	if a.dispatcher != nil {
		report.Stats = a.dispatcher.Stats()
	}
	if a.pipe != nil {
		stats := a.pipe.Stats()
		report.Pipe = &stats
	}
	if a.logger != nil {
		report.Recent = a.logger.Recent()
	}
	return report
}
