package gitp

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// monitoredCmd wraps a cmd and keeps monitoring the process until it
// finishes, the provided context is canceled, or a certain amount of time
// has passed and the command showed no signs of activity. Grounded on
// golang-dep's cmd.go, which this project reuses verbatim as the captured
// execution mode for the VCS Driver (C1).
type monitoredCmd struct {
	cmd     *exec.Cmd
	timeout time.Duration
	ctx     context.Context
	stdout  *activityBuffer
	stderr  *activityBuffer
}

func newMonitoredCmd(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) *monitoredCmd {
	stdout, stderr := newActivityBuffer(), newActivityBuffer()
	cmd.Stdout, cmd.Stderr = stdout, stderr
	return &monitoredCmd{
		cmd:     cmd,
		timeout: timeout,
		ctx:     ctx,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// run waits for the command to finish and returns the error, if any. If the
// command shows no activity for longer than the configured timeout, the
// process is killed.
func (c *monitoredCmd) run() error {
	ticker := time.NewTicker(c.timeout)
	done := make(chan error, 1)
	defer ticker.Stop()
	go func() { done <- c.cmd.Run() }()

	for {
		select {
		case <-ticker.C:
			if c.hasTimedOut() {
				if err := c.cmd.Process.Kill(); err != nil {
					return &killCmdError{err}
				}
				return &timeoutError{c.timeout}
			}
		case <-c.ctx.Done():
			if err := c.cmd.Process.Kill(); err != nil {
				return &killCmdError{err}
			}
			return c.ctx.Err()
		case err := <-done:
			return err
		}
	}
}

func (c *monitoredCmd) hasTimedOut() bool {
	t := time.Now().Add(-c.timeout)
	return c.stderr.lastActivity().Before(t) &&
		c.stdout.lastActivity().Before(t)
}

// combinedOutput runs the command to completion and returns the combined
// stdout+stderr captured along the way, and the run error if any.
func (c *monitoredCmd) combinedOutput() ([]byte, error) {
	err := c.run()
	combined := append(append([]byte{}, c.stdout.buf.Bytes()...), c.stderr.buf.Bytes()...)
	return combined, err
}

// activityBuffer is a buffer that keeps track of the last time a Write
// operation was performed on it.
type activityBuffer struct {
	sync.Mutex
	buf               *bytes.Buffer
	lastActivityStamp time.Time
}

func newActivityBuffer() *activityBuffer {
	return &activityBuffer{buf: bytes.NewBuffer(nil)}
}

func (b *activityBuffer) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	b.lastActivityStamp = time.Now()
	return b.buf.Write(p)
}

func (b *activityBuffer) lastActivity() time.Time {
	b.Lock()
	defer b.Unlock()
	return b.lastActivityStamp
}

type timeoutError struct {
	timeout time.Duration
}

func (e timeoutError) Error() string {
	return fmt.Sprintf("command killed after %s of no activity", e.timeout)
}

type killCmdError struct {
	err error
}

func (e killCmdError) Error() string {
	return fmt.Sprintf("error killing command: %s", e.err)
}

// defaultInactivityTimeout bounds how long a VCS subprocess may run without
// writing to stdout/stderr before it's considered hung.
const defaultInactivityTimeout = 2 * time.Minute

// runCaptured runs name with args in dir, in captured mode: combined
// stdout+stderr is collected and returned; a non-zero exit becomes a
// *VcsError carrying the captured output (spec §4.1).
func runCaptured(ctx context.Context, dir, name string, args ...string) (string, error) {
	c := exec.Command(name, args...)
	c.Dir = dir
	mc := newMonitoredCmd(ctx, c, defaultInactivityTimeout)
	out, err := mc.combinedOutput()
	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return string(out), &VcsError{
			Op:       name,
			Dir:      dir,
			Args:     args,
			ExitCode: exitCode,
			Output:   string(out),
			Cause:    err,
		}
	}
	return string(out), nil
}
