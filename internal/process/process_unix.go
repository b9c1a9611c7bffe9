//go:build !windows

package process

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func configureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		return
	}
	cmd.SysProcAttr.Setpgid = true
}

// signalGroup asks the whole group to stop. The group outlives an early
// leader exit, so it is addressed by pgid.
func signalGroup(cmd *exec.Cmd) error {
	return killPgid(cmd, unix.SIGTERM)
}

func killGroup(cmd *exec.Cmd) error {
	err := killPgid(cmd, unix.SIGKILL)
	if err != nil && !isNoSuchProcess(err) {
		if killErr := cmd.Process.Kill(); killErr != nil && !isNoSuchProcess(killErr) {
			return errors.Join(err, killErr)
		}
	}
	return err
}

func killPgid(cmd *exec.Cmd, sig unix.Signal) error {
	pid := cmd.Process.Pid
	if pid <= 0 {
		return nil
	}
	return unix.Kill(-pid, sig)
}

func isNoSuchProcess(err error) bool {
	return errors.Is(err, unix.ESRCH)
}
