//go:build linux

// Package procattr configures spawned backends so they cannot outlive
// the frontend.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set places the child in its own process group and, on Linux, arranges
// for SIGTERM delivery if this process dies without cleaning up.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
