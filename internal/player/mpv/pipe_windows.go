//go:build windows

package mpv

import (
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// isPipeReady checks whether mpv has created its named pipe yet
func isPipeReady(pipePath string) bool {
	conn, err := dialPipe(pipePath, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func dialPipe(pipePath string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(pipePath, &timeout)
}
