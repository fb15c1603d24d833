package main

import (
	"fmt"
	"os"
	"strings"

	"winkeylock/internal/ipc"
	"winkeylock/internal/keycombo"
)

// pingReply is the payload of a ping response.
type pingReply struct {
	PID     int    `json:"pid"`
	Version string `json:"version"`
}

// checkResult is the payload of a check response and the output of the
// offline check command.
type checkResult struct {
	Combo   string `json:"combo"`
	Blocked bool   `json:"blocked"`
	Source  string `json:"source"`
}

// Execute answers control-pipe requests. It implements ipc.CommandExecutor.
func (a *App) Execute(req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandPing:
		return ipc.OKResponse(req, pingReply{PID: os.Getpid(), Version: version})
	case ipc.CommandStatus:
		return ipc.OKResponse(req, a.statusReport())
	case ipc.CommandReload:
		cfg, err := a.requireConfig()
		if err != nil {
			return ipc.ErrorResponse(req, err)
		}
		if err := cfg.Reload(); err != nil {
			return ipc.ErrorResponse(req, err)
		}
		return ipc.OKResponse(req, cfg.Status())
	case ipc.CommandCheck:
		result, err := a.check(strings.Join(req.Args, " "))
		if err != nil {
			return ipc.ErrorResponse(req, err)
		}
		return ipc.OKResponse(req, result)
	}
	return ipc.ErrorResponse(req, fmt.Errorf("unknown command %q", req.Command))
}

// check evaluates spec against the live policy snapshot.
func (a *App) check(spec string) (checkResult, error) {
	cfg, err := a.requireConfig()
	if err != nil {
		return checkResult{}, err
	}
	combo, err := keycombo.Parse(spec)
	if err != nil {
		return checkResult{}, err
	}
	return checkResult{
		Combo:   combo.String(),
		Blocked: cfg.ShouldBlock(combo.Code(), combo.Modifiers()),
		Source:  "running instance",
	}, nil
}
