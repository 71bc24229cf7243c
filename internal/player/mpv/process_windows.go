//go:build windows

package mpv

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes detaches mpv from the console's Ctrl+C handler so
// it cannot steal keyboard input from the TUI
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
