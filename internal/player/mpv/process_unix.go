//go:build unix

package mpv

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes puts mpv in its own process group so a Ctrl+C in
// the TUI's terminal does not kill it before Close runs
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
