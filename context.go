package gitp

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ColorPolicy controls when ANSI styling is emitted.
type ColorPolicy int

const (
	// ColorAuto enables styling only when stdout is a terminal.
	ColorAuto ColorPolicy = iota
	// ColorAlways forces styling regardless of terminal detection.
	ColorAlways
	// ColorNever disables styling unconditionally.
	ColorNever
)

// Context is the explicit, per-invocation replacement for the process-wide
// globals (verbosity, color policy, manifest cache) that the original tool
// kept at module scope. It is threaded through every operation instead.
type Context struct {
	WorkingDir string
	Log        *logrus.Logger
	Color      ColorPolicy
	Manifests  *ManifestCache

	// Out is where a command's human-facing result output (status lines,
	// stash listings, version strings) is written; defaults to os.Stdout.
	Out io.Writer

	// LockDial, when non-nil, replaces DialLock when Push connects to a lock
	// server address, e.g. with an in-process dialer.
	LockDial func(addr string) (LockClient, error)
}

// NewContext builds a Context rooted at the current working directory, with
// a fresh manifest cache and a logger at Info level tagged with a
// per-invocation correlation ID.
func NewContext() (*Context, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, Wrap(err, "getting working directory")
	}
	return NewContextIn(wd), nil
}

// NewContextIn builds a Context rooted at dir.
func NewContextIn(dir string) *Context {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	op := uuid.New().String()
	log.AddHook(&correlationHook{fields: logrus.Fields{"op": op}})

	return &Context{
		WorkingDir: dir,
		Log:        log,
		Color:      ColorAuto,
		Manifests:  NewManifestCache(),
		Out:        os.Stdout,
	}
}

// SetVerbose maps the -v flag to the logger's Debug level, matching the
// original's DEBUG_LEVEL global.
func (c *Context) SetVerbose(v bool) {
	if v {
		c.Log.SetLevel(logrus.DebugLevel)
	} else {
		c.Log.SetLevel(logrus.InfoLevel)
	}
}

// correlationHook attaches a fixed set of fields to every log entry so a
// recursive fan-out's log lines can be correlated back to one invocation.
type correlationHook struct {
	fields logrus.Fields
}

func (h *correlationHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *correlationHook) Fire(e *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := e.Data[k]; !ok {
			e.Data[k] = v
		}
	}
	return nil
}
