// Package process starts child processes in their own process group and
// tears them down with a graceful signal, a grace period and a hard kill.
package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

const (
	DefaultStderrTailBytes = 32 * 1024
	DefaultTerminateGrace  = 250 * time.Millisecond
)

// Options configures Start.
type Options struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the parent's environment.
	Env []string
	// StderrTailBytes bounds how much stderr is kept for error reports.
	StderrTailBytes int
	// StderrTee, when set, also receives the child's stderr as it arrives.
	StderrTee io.Writer
	// TerminateGrace is how long Terminate waits after the graceful signal.
	TerminateGrace time.Duration
	// NoStdin leaves the child's stdin unconnected.
	NoStdin bool
}

// Process is a running child process.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *TailBuffer
	grace  time.Duration

	waitOnce sync.Once
	waitDone chan struct{}
	waitErr  error

	termOnce sync.Once
	termExit *int
	termErr  error
}

// Start launches command. The child gets its own process group so Terminate
// also reaches any grandchildren it spawns.
func Start(command []string, opts Options) (*Process, error) {
	if len(command) == 0 {
		return nil, errors.New("command is empty")
	}
	dir, err := MakeAbsDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	if opts.StderrTailBytes == 0 {
		opts.StderrTailBytes = DefaultStderrTailBytes
	}
	if opts.TerminateGrace == 0 {
		opts.TerminateGrace = DefaultTerminateGrace
	}

	p := &Process{
		cmd:      exec.Command(command[0], command[1:]...), //nolint:gosec // Command is explicit user configuration.
		stderr:   NewTailBuffer(opts.StderrTailBytes),
		grace:    opts.TerminateGrace,
		waitDone: make(chan struct{}),
	}
	p.stderr.tee = opts.StderrTee
	p.cmd.Dir = dir
	if len(opts.Env) > 0 {
		p.cmd.Env = append(os.Environ(), opts.Env...)
	}
	configureProcessGroup(p.cmd)
	p.cmd.Stderr = p.stderr

	if !opts.NoStdin {
		p.stdin, err = p.cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
	}
	p.stdout, err = p.cmd.StdoutPipe()
	if err != nil {
		p.closeStdin()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		p.closeStdin()
		_ = p.stdout.Close()
		return nil, &Error{Op: "start " + filepath.Base(command[0]), Err: err}
	}
	return p, nil
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Stdin returns the child's stdin, or nil when started with NoStdin.
func (p *Process) Stdin() io.WriteCloser { return p.stdin }

// Stdout returns the child's stdout. Read it to EOF before calling Wait.
func (p *Process) Stdout() io.Reader { return p.stdout }

// Stderr returns the retained tail of the child's stderr.
func (p *Process) Stderr() string { return p.stderr.String() }

// Wait waits for the child to exit and returns its exit code. The code is nil
// when the child was killed by a signal or never ran.
func (p *Process) Wait() (*int, error) {
	p.waitOnce.Do(func() {
		go func() {
			p.waitErr = p.cmd.Wait()
			close(p.waitDone)
		}()
	})
	<-p.waitDone
	return ExitCode(p.waitErr), p.waitErr
}

// Wrap builds an Error for op with the current stderr tail and exit code.
func (p *Process) Wrap(op string, err error, exitCode *int) error {
	return &Error{Op: op, Err: err, ExitCode: exitCode, Stderr: p.Stderr()}
}

// Terminate stops the child and its process group: a graceful signal first,
// then a kill after the grace period. It is safe to call more than once and
// concurrently with Wait.
func (p *Process) Terminate() (*int, error) {
	p.termOnce.Do(func() {
		p.closeStdin()
		p.termExit, p.termErr = p.terminate()
	})
	return p.termExit, p.termErr
}

func (p *Process) terminate() (*int, error) {
	if p.cmd.Process == nil {
		code := 0
		return &code, nil
	}

	waitCh := make(chan struct{})
	go func() {
		_, _ = p.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		return ExitCode(p.waitErr), nil
	default:
	}

	if runtime.GOOS == "windows" {
		err := killGroup(p.cmd)
		<-waitCh
		return ExitCode(p.waitErr), err
	}

	var termErr error
	if err := signalGroup(p.cmd); err != nil && !isNoSuchProcess(err) {
		termErr = err
	}

	if p.grace > 0 {
		timer := time.NewTimer(p.grace)
		defer timer.Stop()
		select {
		case <-waitCh:
			return ExitCode(p.waitErr), termErr
		case <-timer.C:
		}
	}

	if err := killGroup(p.cmd); err != nil && !isNoSuchProcess(err) {
		termErr = errors.Join(termErr, err)
	}
	<-waitCh
	return ExitCode(p.waitErr), termErr
}

func (p *Process) closeStdin() {
	if p.stdin != nil {
		_ = p.stdin.Close()
	}
}

// MakeAbsDir resolves dir against the working directory; "" means the
// working directory itself.
func MakeAbsDir(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		return cwd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs dir: %w", err)
	}
	return abs, nil
}

// ExitCode extracts the exit code from an exec wait error. Nil means success.
func ExitCode(err error) *int {
	if err == nil {
		code := 0
		return &code
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code := ee.ExitCode()
		if code < 0 {
			return nil
		}
		return &code
	}
	return nil
}
