//go:build !windows

package mpv

import (
	"errors"
	"net"
	"time"
)

var errNoNamedPipes = errors.New("named pipes are only available on windows")

// isPipeReady is always false on Unix, sockets are checked by path
func isPipeReady(pipePath string) bool {
	return false
}

func dialPipe(pipePath string, timeout time.Duration) (net.Conn, error) {
	return nil, errNoNamedPipes
}
