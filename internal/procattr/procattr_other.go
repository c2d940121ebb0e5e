//go:build !linux

// Package procattr configures spawned backends so they cannot outlive
// the frontend.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set places the child in its own process group. Pdeathsig does not
// exist off Linux; the group still allows kill -<signal> -<pgid> cleanup.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
