package gitp

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// StatusOptions controls Status's output detail.
type StatusOptions struct {
	Short bool
	Color bool
}

// StatusLine is one reported node.
type StatusLine struct {
	Path    string
	State   RepoState
	Detail  string
	Changes string // abbreviated `git status` output, non-short mode only
}

// Status reconciles the tree rooted at dir against its manifests and reports
// one line per node, depth-first in sorted child-path order, including clean
// nodes — mirroring gitp.py's status()/work(): a node's state is first the
// manifest-alignment mismatch (spec §4.4) if one applies, else whether it
// carries local/unpushed changes of its own (RepoState.MODIFIED), else
// CLEAN. A node with a merge in progress is reported by falling through to
// the underlying VCS rather than being parsed as a mismatch (spec §7).
func Status(ctx *Context, driver *Driver, dir string, opts StatusOptions) ([]StatusLine, error) {
	if inProgress, out, err := mergeInProgress(driver, dir); err != nil {
		return nil, err
	} else if inProgress {
		return nil, NewPreconditionError("merge in progress in "+dir, out)
	}

	var lines []StatusLine
	if err := statusNode(ctx, driver, dir, "", nil, opts, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// statusNode appends one StatusLine for the node materialized at path
// (relPath from the top repo; entry is nil for the top repo itself) and
// recurses into its declared, non-overlay children. Overlay entries are
// only legal at the top level (spec §3 invariant 3), so they are rendered
// once, after the regular children, rather than threaded through relPath.
func statusNode(ctx *Context, driver *Driver, path, relPath string, entry *RepoEntry, opts StatusOptions, out *[]StatusLine) error {
	isLink := entry != nil && entry.Link != ""

	var state RepoState
	var detail string
	switch {
	case isLink:
		mm, err := reconcileLinkEntry(path, entry)
		if err != nil {
			return err
		}
		state, detail = mm.State, detailFor(mm)
	case entry != nil:
		mm, err := reconcileRepoEntry(driver, path, entry)
		if err != nil {
			return err
		}
		state, detail = mm.State, detailFor(mm)
		if state == StateClean {
			state, detail, err = classifyLocalChanges(driver, path)
			if err != nil {
				return err
			}
		}
	default:
		var err error
		state, detail, err = classifyLocalChanges(driver, path)
		if err != nil {
			return err
		}
	}

	line := StatusLine{Path: displayPath(relPath, path), State: state, Detail: detail}
	if !opts.Short && !isLink {
		if abbrev, err := gitStatusAbbrev(driver, path); err == nil {
			line.Changes = abbrev
		}
	}
	*out = append(*out, line)

	m, err := ctx.Manifests.Load(path)
	if err != nil || m == nil {
		return err
	}

	var overlayPaths []string
	for _, childPath := range m.SortedChildPaths() {
		child := m.Repos[childPath]
		if child.IsOverlay() {
			if relPath == "" {
				overlayPaths = append(overlayPaths, childPath)
			}
			continue
		}
		childRel := childPath
		if relPath != "" {
			childRel = filepath.Join(relPath, childPath)
		}
		if err := statusNode(ctx, driver, filepath.Join(path, childPath), childRel, child, opts, out); err != nil {
			return err
		}
	}

	if len(overlayPaths) == 0 {
		return nil
	}
	overlays, err := checkForOverlayStateMatch(path, m)
	if err != nil {
		return err
	}
	for _, childPath := range overlayPaths {
		mm := overlays[childPath]
		*out = append(*out, StatusLine{Path: childPath, State: mm.State, Detail: detailFor(mm)})
	}
	return nil
}

// displayPath is relPath, or path itself for the top-level node (relPath
// "").
func displayPath(relPath, path string) string {
	if relPath == "" {
		return path
	}
	return relPath
}

// classifyLocalChanges reports whether path itself (not its children) has
// uncommitted or unpushed work, via checkForChanges (spec §4.4's MODIFIED
// classification, gitp.py's status() calling check_for_changes(root,
// recurse=False, ignore_local_branches=True)).
func classifyLocalChanges(driver *Driver, path string) (RepoState, string, error) {
	changes, err := checkForChanges(driver, path, ChangeOptions{Recurse: false, IgnoreLocalOnly: true})
	if err != nil {
		return StateClean, "", err
	}
	for _, c := range changes {
		if c.Path != path {
			continue
		}
		if c.UnpushedCommitCount > 0 {
			return StateModified, fmt.Sprintf("%d unpushed commit(s)", c.UnpushedCommitCount), nil
		}
		return StateModified, "uncommitted changes", nil
	}
	return StateClean, "", nil
}

// abbreviateStatusPrint trims the boilerplate lines ("On branch ...",
// `(use "git ...")`, "nothing to commit, ...", "Your branch is ahead...")
// from a raw `git status` message for concise recursive printing, and drops
// the "up to date with" preamble entirely. Ported from gitp.py's
// abbreviate_status_print; the original's DEBUG_LEVEL passthrough (print
// every line unabbreviated in verbose mode) has no analog here since
// verbosity is a logger level (§A.1), not a line filter.
func abbreviateStatusPrint(out string) string {
	lines := strings.Split(out, "\n")
	if strings.Contains(out, "Your branch is up to date with") && len(lines) > 2 {
		lines = lines[2:]
	}

	var kept []string
	for _, l := range lines {
		if l == "" {
			continue
		}
		if strings.Contains(l, "On branch ") ||
			strings.Contains(l, `(use "git`) ||
			strings.Contains(l, "nothing to commit,") ||
			strings.Contains(l, "Your branch is ahead") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

// gitStatusAbbrev runs `git status` in path and abbreviates it, for the
// per-node embedded output §C.4 restores. A missing path or VCS failure is
// not an error for status reporting purposes; it just yields no output.
func gitStatusAbbrev(driver *Driver, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	out, err := driver.Run(path, "status")
	if err != nil {
		return "", nil
	}
	return abbreviateStatusPrint(strings.TrimSpace(out)), nil
}

func detailFor(mm StateMismatch) string {
	switch mm.State {
	case StateUnaligned:
		if mm.ObservedCommit != "" {
			return "at " + mm.ObservedBranch + "@" + mm.ObservedCommit
		}
		return "linked to " + mm.ObservedLink
	case StateUnlinked:
		return "real directory in place of link"
	default:
		return ""
	}
}

// mergeInProgress checks for a MERGE_HEAD in dir's own .git, the signal the
// underlying VCS uses to mark an unresolved merge.
func mergeInProgress(driver *Driver, dir string) (bool, string, error) {
	mergeHead := filepath.Join(dir, ".git", "MERGE_HEAD")
	if _, err := os.Stat(mergeHead); err == nil {
		out, _ := driver.Run(dir, "status")
		return true, out, nil
	}
	return false, "", nil
}

// WriteStatus renders lines to w, one per line, colorized per opts.Color.
func WriteStatus(w io.Writer, lines []StatusLine, opts StatusOptions) {
	for _, l := range lines {
		symbol := Paint(StatusSymbol(l.State), StatusStyle(l.State), opts.Color)
		if opts.Short {
			fmt.Fprintf(w, "%s %s\n", symbol, l.Path)
			continue
		}
		if l.Detail != "" {
			fmt.Fprintf(w, "%s %-30s %s (%s)\n", symbol, l.Path, l.State, l.Detail)
		} else {
			fmt.Fprintf(w, "%s %-30s %s\n", symbol, l.Path, l.State)
		}
		if l.Changes != "" {
			for _, cl := range strings.Split(l.Changes, "\n") {
				fmt.Fprintf(w, "    %s\n", Paint(cl, StyleGray, opts.Color))
			}
		}
	}
}
