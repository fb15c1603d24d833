//go:build !windows

package ipc

import (
	"net"
	"time"
)

func dialPipe(string, time.Duration) (net.Conn, error) { return nil, ErrUnsupported }

func listenPipeWithCurrentUserDACL(string) (net.Listener, error) { return nil, ErrUnsupported }
