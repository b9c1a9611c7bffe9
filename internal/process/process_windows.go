//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

func configureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}

// Windows has no graceful signal for console-less children; Terminate goes
// straight to killGroup.
func signalGroup(cmd *exec.Cmd) error {
	return killGroup(cmd)
}

func killGroup(cmd *exec.Cmd) error {
	pid := cmd.Process.Pid
	if pid <= 0 {
		return nil
	}

	// PROCESS_QUERY_LIMITED_INFORMATION is not exported by syscall.
	const processQueryLimitedInformation uint32 = 0x00001000

	access := uint32(syscall.PROCESS_TERMINATE) | processQueryLimitedInformation
	h, err := syscall.OpenProcess(access, false, uint32(pid))
	if err != nil {
		if isNoSuchProcess(err) {
			return nil
		}
		return fmt.Errorf("open process %d: %w", pid, err)
	}

	termErr := syscall.TerminateProcess(h, 1)
	closeErr := syscall.CloseHandle(h)
	if termErr != nil {
		return errors.Join(fmt.Errorf("terminate process %d: %w", pid, termErr), closeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close process handle %d: %w", pid, closeErr)
	}
	return nil
}

func isNoSuchProcess(err error) bool {
	if err == nil {
		return false
	}
	// ERROR_INVALID_PARAMETER (87) is what OpenProcess returns for a gone pid.
	const windowsErrorInvalidParameter syscall.Errno = 87

	return errors.Is(err, os.ErrProcessDone) ||
		errors.Is(err, syscall.ERROR_NOT_FOUND) ||
		errors.Is(err, windowsErrorInvalidParameter)
}
