package gitp

import (
	"fmt"

	"github.com/pkg/errors"
)

// UsageError indicates a bad flag or missing required argument, rejected
// before any side effect is attempted.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// NewUsageError builds a UsageError with a formatted message.
func NewUsageError(format string, args ...interface{}) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// PreconditionError indicates an operation was rejected because running it
// would clobber local state, the tree is unaligned, or an interactive VCS
// mode was requested. Carries a remediation hint.
type PreconditionError struct {
	Msg  string
	Hint string
}

func (e *PreconditionError) Error() string {
	if e.Hint == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (%s)", e.Msg, e.Hint)
}

// NewPreconditionError builds a PreconditionError with an optional hint.
func NewPreconditionError(msg, hint string) *PreconditionError {
	return &PreconditionError{Msg: msg, Hint: hint}
}

// VcsError wraps a failed VCS subprocess invocation with its exit code and
// captured combined output, distinguishable from plain I/O errors.
type VcsError struct {
	Op       string
	Dir      string
	Args     []string
	ExitCode int
	Output   string
	Cause    error
}

func (e *VcsError) Error() string {
	out := e.Output
	if len(out) > 2048 {
		out = out[:2048] + "...(truncated)"
	}
	return fmt.Sprintf("%s in %s: %v\n%s", e.Op, e.Dir, e.Cause, out)
}

func (e *VcsError) Unwrap() error { return e.Cause }

// ParseError indicates a manifest file failed to parse or was internally
// corrupt (duplicate child paths, unknown keys, non-unique stash IDs).
type ParseError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError builds a ParseError for path.
func NewParseError(path, msg string, cause error) *ParseError {
	return &ParseError{Path: path, Msg: msg, Err: cause}
}

// LockError indicates a malformed lock-server frame or an unexpected
// disconnect observed by the client; the lock is assumed lost.
type LockError struct {
	Msg string
	Err error
}

func (e *LockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lock: %s: %v", e.Msg, e.Err)
	}
	return "lock: " + e.Msg
}

func (e *LockError) Unwrap() error { return e.Err }

// NewLockError builds a LockError for msg, wrapping cause (if any).
func NewLockError(msg string, cause error) *LockError {
	return &LockError{Msg: msg, Err: cause}
}

// FsError carries path context for a failed filesystem operation.
type FsError struct {
	Path string
	Op   string
	Err  error
}

func (e *FsError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FsError) Unwrap() error { return e.Err }

// NewFsError wraps err with path/op context.
func NewFsError(op, path string, err error) *FsError {
	return &FsError{Op: op, Path: path, Err: err}
}

// Wrap is a thin alias over errors.Wrap kept local so callers only import
// this package's error sum, not pkg/errors directly, for everyday wrapping.
func Wrap(err error, msg string) error { return errors.Wrap(err, msg) }

// Wrapf is the formatted counterpart of Wrap.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Cause unwraps to the deepest non-wrapped error, matching pkg/errors'
// traditional behavior for type-switching at the CLI boundary.
func Cause(err error) error { return errors.Cause(err) }

// ExitCode maps the error sum to a process exit code the way cmd/gitp's
// Config.Run does.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Cause(err).(type) {
	case *UsageError:
		return 2
	case *PreconditionError:
		return 3
	case *VcsError:
		return 4
	case *ParseError:
		return 5
	case *LockError:
		return 6
	case *FsError:
		return 7
	default:
		return 1
	}
}
