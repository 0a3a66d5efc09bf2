package gitp

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
)

// Driver executes the underlying VCS binary in two modes: captured (collect
// combined output, return a typed error on failure) and interactive (stream
// stdout to the terminal with an optional per-line post-processor, stdin
// passed through). Spec §4.1 (C1).
type Driver struct {
	Bin   string // "git"
	Color bool   // whether interactive output may be colorized
}

// NewDriver builds a Driver for name (almost always "git"; spec scopes this
// tool to git, but the interface does not hard-code that).
func NewDriver(name string, color bool) *Driver {
	return &Driver{Bin: name, Color: color}
}

// Run executes the driver's binary with args in dir, in captured mode.
func (d *Driver) Run(dir string, args ...string) (string, error) {
	return runCaptured(context.Background(), dir, d.Bin, args...)
}

// RunCtx is Run with an explicit cancellation context, used by callers that
// need to abort a long-running subprocess (e.g. a lock-holder timeout).
func (d *Driver) RunCtx(ctx context.Context, dir string, args ...string) (string, error) {
	c := exec.Command(d.Bin, args...)
	c.Dir = dir
	mc := newMonitoredCmd(ctx, c, defaultInactivityTimeout)
	out, err := mc.combinedOutput()
	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return string(out), &VcsError{Op: d.Bin, Dir: dir, Args: args, ExitCode: exitCode, Output: string(out), Cause: err}
	}
	return string(out), nil
}

// LineFilter post-processes one line of interactive output before it is
// written to w; returning false suppresses the line.
type LineFilter func(line string) (string, bool)

// RunInteractive executes the driver's binary with args in dir, streaming
// stdout to w line-by-line as each line arrives and passing stdin through
// from r. A non-zero exit becomes a *VcsError with no
// captured output (the output already went straight to the terminal).
func (d *Driver) RunInteractive(dir string, args []string, r io.Reader, w io.Writer, filter LineFilter) error {
	c := exec.Command(d.Bin, args...)
	c.Dir = dir
	c.Stdin = r

	stdout, err := c.StdoutPipe()
	if err != nil {
		return Wrap(err, "opening stdout pipe")
	}
	c.Stderr = os.Stderr

	if err := c.Start(); err != nil {
		return Wrap(err, "starting interactive command")
	}

	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		line := sc.Text()
		if filter != nil {
			var ok bool
			line, ok = filter(line)
			if !ok {
				continue
			}
		}
		io.WriteString(w, line+"\n")
	}

	if err := c.Wait(); err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return &VcsError{Op: d.Bin, Dir: dir, Args: args, ExitCode: exitCode, Cause: err}
	}
	return nil
}
