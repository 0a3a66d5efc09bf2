package gitp

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// ExecOptions parameterizes one Recursive Executor invocation (spec §4.6).
type ExecOptions struct {
	Targets     []string
	Filters     []string // regexes; default ".*" when empty
	ModifiedOnly bool
	Preview     bool
	StopOnError bool
}

// ExecResult is one executed (or skipped) node's outcome. Path is the
// display path (relative to dir, or the cleaned dir itself for the root); Dir is the
// absolute directory the command actually runs in.
type ExecResult struct {
	Path      string
	Dir       string
	Skipped   bool
	SkipWhy   string
	Commands  []string
	Err       error
}

// Exec walks the tree rooted at dir, collecting nodes that match any of
// opts.Targets or opts.Filters, and runs each command in commands against
// each matching node in discovery order (spec §4.6).
func Exec(ctx *Context, driver *Driver, dir string, commands []string, opts ExecOptions) ([]ExecResult, int, error) {
	nodes, err := collectExecNodes(ctx, dir, opts)
	if err != nil {
		return nil, 0, err
	}

	var results []ExecResult
	failures := 0
	for _, n := range nodes {
		if n.Skipped {
			results = append(results, n)
			continue
		}
		if opts.Preview {
			n.Commands = commands
			results = append(results, n)
			continue
		}

		var err error
		for _, c := range commands {
			if e := runExecCommand(driver, n.Dir, c); e != nil {
				err = e
				break
			}
		}
		n.Err = err
		n.Commands = commands
		results = append(results, n)
		if err != nil {
			failures++
			if opts.StopOnError {
				break
			}
		}
	}
	return results, failures, nil
}

// runExecCommand runs one command line in dir. A "git "-prefixed command
// dispatches through the VCS Driver; otherwise it runs as an external
// process (spec §4.6).
func runExecCommand(driver *Driver, dir, command string) error {
	if strings.HasPrefix(command, "git ") {
		args := strings.Fields(strings.TrimPrefix(command, "git "))
		_, err := driver.Run(dir, args...)
		return err
	}
	return runShell(dir, command, os.Environ())
}

// runShell executes command via the platform shell in dir, streaming its
// output straight to the process's own stdout/stderr. Used for exec's
// plain commands and for post_clone/post_pull hooks.
func runShell(dir, command string, env []string) error {
	c := exec.Command("sh", "-c", command)
	c.Dir = dir
	c.Env = env
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Stdin = os.Stdin
	if err := c.Run(); err != nil {
		return &VcsError{Op: "exec", Dir: dir, Args: []string{command}, Cause: err}
	}
	return nil
}

// collectExecNodes resolves opts.Targets/opts.Filters against dir's
// manifest tree, recording a skip reason for link targets and
// non-materialized nodes instead of executing them.
func collectExecNodes(ctx *Context, dir string, opts ExecOptions) ([]ExecResult, error) {
	filters := opts.Filters
	if len(filters) == 0 {
		filters = []string{".*"}
	}
	compiled := make([]*regexp.Regexp, 0, len(filters))
	for _, f := range filters {
		re, err := compileRegex(f)
		if err != nil {
			return nil, NewUsageError("invalid filter regex %q: %v", f, err)
		}
		compiled = append(compiled, re)
	}

	targetSet := make(map[string]bool, len(opts.Targets))
	for _, t := range opts.Targets {
		targetSet[strings.TrimSuffix(t, "/")] = true
	}

	seenTargets := make(map[string]bool)
	var results []ExecResult

	err := walkManifests(ctx.Manifests, dir, "", true, func(childDir, relPath string, entry *RepoEntry) error {
		matched := targetSet[relPath]
		if matched {
			seenTargets[relPath] = true
		}
		if !matched {
			for _, re := range compiled {
				if re.MatchString(relPath) {
					matched = true
					break
				}
			}
		}
		if !matched {
			return nil
		}

		if entry.Link != "" {
			results = append(results, ExecResult{Path: relPath, Dir: childDir, Skipped: true, SkipWhy: "link target"})
			return nil
		}
		empty, err := IsEmptyDirOrNotExist(childDir)
		if err != nil {
			return err
		}
		if empty {
			results = append(results, ExecResult{Path: relPath, Dir: childDir, Skipped: true, SkipWhy: "not materialized"})
			return nil
		}

		if opts.ModifiedOnly {
			driver := NewDriver("git", false)
			changes, err := checkForChanges(driver, childDir, ChangeOptions{Recurse: false})
			if err != nil {
				return err
			}
			modified := false
			for _, c := range changes {
				if c.Path == childDir {
					modified = true
				}
			}
			if !modified {
				return nil
			}
		}

		results = append(results, ExecResult{Path: relPath, Dir: childDir})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range opts.Targets {
		key := strings.TrimSuffix(t, "/")
		if !seenTargets[key] {
			return nil, NewUsageError("unresolved target path %q", t)
		}
	}

	// The root repo itself also participates when no explicit targets
	// narrow the walk away from it.
	if len(opts.Targets) == 0 {
		matches := false
		for _, re := range compiled {
			if re.MatchString(".") {
				matches = true
				break
			}
		}
		if matches {
			root := filepath.Clean(dir)
			results = append([]ExecResult{{Path: root, Dir: root}}, results...)
		}
	}

	return results, nil
}
