package gitp

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// StashesFileName is the well-known index of super-stash entries, kept at
// the top-level repo root and registered in .gitignore (spec §4.7).
const StashesFileName = ".gitp_stashes"

// StashEntry is one parsed line of the .gitp_stashes file.
type StashEntry struct {
	Pos     int
	Branch  string
	ID      string
	Message string
}

var stashLineRE = regexp.MustCompile(`^stash@\{(\d+)\}: On ([^:]+): __gitp(\S+) (.*)$`)

func parseStashLine(line string) (StashEntry, bool) {
	m := stashLineRE.FindStringSubmatch(line)
	if m == nil {
		return StashEntry{}, false
	}
	pos, _ := strconv.Atoi(m[1])
	return StashEntry{Pos: pos, Branch: m[2], ID: m[3], Message: m[4]}, true
}

func (e StashEntry) String() string {
	return fmt.Sprintf("stash@{%d}: On %s: __gitp%s %s", e.Pos, e.Branch, e.ID, e.Message)
}

// readStashes parses the .gitp_stashes file at topDir, renumbering is not
// performed here; callers that mutate the set call writeStashes which
// renumbers before serializing.
func readStashes(topDir string) ([]StashEntry, error) {
	path := filepath.Join(topDir, StashesFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewFsError("read", path, err)
	}

	var entries []StashEntry
	seenIDs := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, ok := parseStashLine(line)
		if !ok {
			return nil, NewParseError(path, "malformed stash line: "+line, nil)
		}
		if seenIDs[e.ID] {
			return nil, NewParseError(path, "duplicate stash id "+e.ID, nil)
		}
		seenIDs[e.ID] = true
		entries = append(entries, e)
	}
	return entries, nil
}

// writeStashes renumbers entries (position 0 = top, i.e. entries[0]) and
// rewrites the file from the resulting lines, never appending stray
// duplicate content — this is the correct rewrite spec §9 asks for in
// place of the original's documented bug.
func writeStashes(topDir string, entries []StashEntry) error {
	path := filepath.Join(topDir, StashesFileName)
	if len(entries) == 0 {
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
		return nil
	}

	var b strings.Builder
	for i, e := range entries {
		e.Pos = i
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// withStashLock guards a .gitp_stashes read-modify-write with an exclusive
// advisory lock on the top repo's own VCS index file (spec §5).
func withStashLock(topDir string, fn func() error) error {
	lockPath := filepath.Join(topDir, ".git", "index")
	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		return NewFsError("lock", lockPath, err)
	}
	defer fl.Unlock()
	return fn()
}

func newStashID() string {
	return fmt.Sprintf("%d%04d", time.Now().UnixNano(), rand.Intn(10000))
}

// StashPush allocates a fresh ID, walks the tree performing a per-repo
// stash with message "__gitp<id> <message>", and records a new top-of-stack
// entry. If nothing was stashed anywhere, the entry is dropped and the push
// reports a no-op (spec §4.7).
func StashPush(ctx *Context, driver *Driver, topDir, message string) (didStash bool, err error) {
	id := newStashID()
	branch, err := gitSymbolicRef(driver, topDir)
	if err != nil {
		return false, err
	}

	err = withStashLock(topDir, func() error {
		stashedAny := false

		walkErr := walkMaterialized(topDir, "", true, func(path string, entry *RepoEntry) error {
			if entry != nil && entry.Link != "" {
				return nil
			}
			changes, err := checkForChanges(driver, path, ChangeOptions{Recurse: false})
			if err != nil {
				return err
			}
			if len(changes) == 0 {
				return nil
			}
			before, _ := driver.Run(path, "rev-parse", "-q", "--verify", "refs/stash")
			if _, err := driver.Run(path, "stash", "push", "-m", "__gitp"+id+" "+message); err != nil {
				return err
			}
			if after, _ := driver.Run(path, "rev-parse", "-q", "--verify", "refs/stash"); after != before {
				stashedAny = true
			}
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
		if !stashedAny {
			didStash = false
			return nil
		}

		entries, err := readStashes(topDir)
		if err != nil {
			return err
		}
		entries = append([]StashEntry{{Branch: branch, ID: id, Message: message}}, entries...)
		didStash = true
		return writeStashes(topDir, entries)
	})
	return didStash, err
}

// resolveStashRef finds the stash entry a user reference names: either
// "stash@{N}", a literal message, or "" for the top of the stack (spec
// §4.7 Targeting rules).
func resolveStashRef(entries []StashEntry, ref string) (StashEntry, error) {
	if len(entries) == 0 {
		return StashEntry{}, NewPreconditionError("no stash entries", "")
	}
	if ref == "" {
		return entries[0], nil
	}
	if strings.HasPrefix(ref, "stash@{") && strings.HasSuffix(ref, "}") {
		n, err := strconv.Atoi(ref[len("stash@{") : len(ref)-1])
		if err == nil {
			for _, e := range entries {
				if e.Pos == n {
					return e, nil
				}
			}
		}
		return StashEntry{}, NewUsageError("no such stash entry %q", ref)
	}
	for _, e := range entries {
		if e.Message == ref {
			return e, nil
		}
	}
	return StashEntry{}, NewUsageError("no such stash entry %q", ref)
}

// stashApplyLike runs subcommand ("pop", "apply", or "drop") against every
// per-repo stash embedding entry.ID, then updates the super-stash index.
func stashApplyLike(ctx *Context, driver *Driver, topDir string, entry StashEntry, subcommand string, removeEntry bool) error {
	return withStashLock(topDir, func() error {
		err := walkMaterialized(topDir, "", true, func(path string, e *RepoEntry) error {
			if e != nil && e.Link != "" {
				return nil
			}
			ref, found, err := findRepoStashRef(driver, path, entry.ID)
			if err != nil {
				return err
			}
			if !found {
				return nil
			}
			_, err = driver.Run(path, "stash", subcommand, ref)
			return err
		})
		if err != nil {
			return err
		}
		if !removeEntry {
			return nil
		}
		return removeStashEntry(topDir, entry.ID)
	})
}

// findRepoStashRef scans `git stash list` in path for the entry whose
// message embeds id, returning its local "stash@{N}" reference.
func findRepoStashRef(driver *Driver, path, id string) (string, bool, error) {
	out, err := driver.Run(path, "stash", "list")
	if err != nil {
		return "", false, err
	}
	needle := "__gitp" + id
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, needle) {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		return line[:idx], true, nil
	}
	return "", false, nil
}

func removeStashEntry(topDir, id string) error {
	entries, err := readStashes(topDir)
	if err != nil {
		return err
	}
	var kept []StashEntry
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return writeStashes(topDir, kept)
}

// StashPop applies then drops the stash identified by ref (or the top of
// the stack when ref is empty).
func StashPop(ctx *Context, driver *Driver, topDir, ref string) error {
	entries, err := readStashes(topDir)
	if err != nil {
		return err
	}
	e, err := resolveStashRef(entries, ref)
	if err != nil {
		return err
	}
	return stashApplyLike(ctx, driver, topDir, e, "pop", true)
}

// StashApply applies the stash identified by ref without removing it.
func StashApply(ctx *Context, driver *Driver, topDir, ref string) error {
	entries, err := readStashes(topDir)
	if err != nil {
		return err
	}
	e, err := resolveStashRef(entries, ref)
	if err != nil {
		return err
	}
	return stashApplyLike(ctx, driver, topDir, e, "apply", false)
}

// StashDrop discards the stash identified by ref.
func StashDrop(ctx *Context, driver *Driver, topDir, ref string) error {
	entries, err := readStashes(topDir)
	if err != nil {
		return err
	}
	e, err := resolveStashRef(entries, ref)
	if err != nil {
		return err
	}
	return stashApplyLike(ctx, driver, topDir, e, "drop", true)
}

// StashClear drops every per-repo stash for every super-stash entry.
func StashClear(ctx *Context, driver *Driver, topDir string) error {
	entries, err := readStashes(topDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := stashApplyLike(ctx, driver, topDir, e, "drop", false); err != nil {
			return err
		}
	}
	return withStashLock(topDir, func() error {
		return writeStashes(topDir, nil)
	})
}

// StashBranch creates branchName from the stash identified by ref in every
// repo holding a matching per-repo stash, starting from each repo's current
// ref, restoring it on failure.
func StashBranch(ctx *Context, driver *Driver, topDir, branchName, ref string) error {
	entries, err := readStashes(topDir)
	if err != nil {
		return err
	}
	e, err := resolveStashRef(entries, ref)
	if err != nil {
		return err
	}

	return withStashLock(topDir, func() error {
		return walkMaterialized(topDir, "", true, func(path string, entry *RepoEntry) error {
			if entry != nil && entry.Link != "" {
				return nil
			}
			stashRef, found, err := findRepoStashRef(driver, path, e.ID)
			if err != nil {
				return err
			}
			if !found {
				return nil
			}

			prevRef, err := gitSymbolicRef(driver, path)
			if err != nil {
				return err
			}
			if _, err := driver.Run(path, "stash", "branch", branchName, stashRef); err != nil {
				if prevRef != "" {
					driver.Run(path, "checkout", prevRef)
				}
				return err
			}
			return nil
		})
	})
}

// StashList returns the .gitp_stashes file content verbatim.
func StashList(topDir string) (string, error) {
	path := filepath.Join(topDir, StashesFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", NewFsError("read", path, err)
	}
	return string(data), nil
}

// StashShow is a read-only lookup of a single super-stash entry.
func StashShow(topDir, ref string) (StashEntry, error) {
	entries, err := readStashes(topDir)
	if err != nil {
		return StashEntry{}, err
	}
	return resolveStashRef(entries, ref)
}
