package gitp

import (
	"path/filepath"
	"strconv"
	"strings"
)

// RepoState classifies one materialized node relative to its manifest
// declaration (spec §3).
type RepoState int

const (
	StateClean RepoState = iota
	StateModified
	StateUnaligned
	StateNonexistent
	StateUnlinked
	StateOverlayed
)

func (s RepoState) String() string {
	switch s {
	case StateClean:
		return "CLEAN"
	case StateModified:
		return "MODIFIED"
	case StateUnaligned:
		return "UNALIGNED"
	case StateNonexistent:
		return "NONEXISTENT"
	case StateUnlinked:
		return "UNLINKED"
	case StateOverlayed:
		return "OVERLAYED"
	default:
		return "UNKNOWN"
	}
}

// ChangeOptions toggle what checkForChanges considers "work".
type ChangeOptions struct {
	IgnoreCommitted    bool
	IgnoreUncommitted  bool
	IgnoreUntracked    bool
	IgnoreLocalOnly    bool
	Target             string
	Recurse            bool
}

// ChangedRepo is one entry of checkForChanges' result: a node with
// uncommitted, untracked, or unpushed work, and how many commits it is
// ahead of its best-tracked remote.
type ChangedRepo struct {
	Path                string
	UnpushedCommitCount int
}

// checkForChanges walks the tree rooted at dir and returns every node that
// has uncommitted, untracked, or unpushed work, per the options (spec
// §4.4). It does not fail on a clean tree; an empty result means clean.
func checkForChanges(driver *Driver, dir string, opts ChangeOptions) ([]ChangedRepo, error) {
	var out []ChangedRepo

	err := walkMaterialized(dir, opts.Target, opts.Recurse, func(path string, entry *RepoEntry) error {
		if entry != nil && entry.Link != "" {
			return nil // links carry no local VCS state of their own
		}

		dirty, err := hasLocalWork(driver, path, opts)
		if err != nil {
			return err
		}

		count, err := maxUnpushedCount(driver, path, opts)
		if err != nil {
			return err
		}

		if dirty || count > 0 {
			out = append(out, ChangedRepo{Path: path, UnpushedCommitCount: count})
		}
		return nil
	})
	return out, err
}

// hasLocalWork reports whether path has uncommitted, staged, or untracked
// changes, subject to the Ignore* toggles.
func hasLocalWork(driver *Driver, path string, opts ChangeOptions) (bool, error) {
	out, err := driver.Run(path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		untracked := strings.HasPrefix(line, "??")
		if untracked && opts.IgnoreUntracked {
			continue
		}
		if !untracked && (opts.IgnoreCommitted && opts.IgnoreUncommitted) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// maxUnpushedCount returns the maximum, over all remotes, of
// `rev-list --count <remote>/<branch>..HEAD`. Branches absent from every
// remote count as 0 and are filtered out when IgnoreLocalOnly is set.
func maxUnpushedCount(driver *Driver, path string, opts ChangeOptions) (int, error) {
	branchOut, err := driver.Run(path, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		return 0, nil // detached HEAD: no branch to compare upstream against
	}
	branch := strings.TrimSpace(branchOut)
	if branch == "" {
		return 0, nil
	}

	remotesOut, err := driver.Run(path, "remote")
	if err != nil {
		return 0, err
	}

	best := 0
	any := false
	for _, remote := range strings.Split(strings.TrimSpace(remotesOut), "\n") {
		remote = strings.TrimSpace(remote)
		if remote == "" {
			continue
		}
		ref := remote + "/" + branch
		out, err := driver.Run(path, "rev-list", "--count", ref+"..HEAD")
		if err != nil {
			continue // ref doesn't exist on this remote; not tracked there
		}
		any = true
		n, convErr := strconv.Atoi(strings.TrimSpace(out))
		if convErr != nil {
			continue
		}
		if n > best {
			best = n
		}
	}

	if !any && opts.IgnoreLocalOnly {
		return 0, nil
	}
	return best, nil
}

// StateMismatch is one disagreement between a manifest's declaration and
// the observed filesystem state for a child path (spec §4.4).
type StateMismatch struct {
	Path            string
	ObservedBranch  string
	ObservedCommit  string
	ObservedLink    string
	State           RepoState
}

// checkForStateMatch returns every child of dir's manifest whose declared
// state disagrees with the filesystem, per the table in spec §4.4.
func checkForStateMatch(driver *Driver, cache *ManifestCache, dir string, target string, recurse bool) (map[string]StateMismatch, error) {
	out := make(map[string]StateMismatch)

	err := walkManifests(cache, dir, target, recurse, func(childDir string, relPath string, entry *RepoEntry) error {
		mm, err := reconcileOne(driver, childDir, entry)
		if err != nil {
			return err
		}
		if mm.State != StateClean {
			mm.Path = relPath
			out[relPath] = mm
		}
		return nil
	})
	return out, err
}

func reconcileOne(driver *Driver, childDir string, entry *RepoEntry) (StateMismatch, error) {
	if entry.IsOverlay() {
		return StateMismatch{}, nil // overlays are handled by checkForOverlayStateMatch
	}

	if entry.Link != "" {
		return reconcileLinkEntry(childDir, entry)
	}
	return reconcileRepoEntry(driver, childDir, entry)
}

func reconcileLinkEntry(childDir string, entry *RepoEntry) (StateMismatch, error) {
	empty, err := IsEmptyDirOrNotExist(childDir)
	if err != nil {
		return StateMismatch{}, err
	}
	real, err := isRealDir(childDir)
	if err != nil {
		return StateMismatch{}, err
	}

	switch {
	case real:
		return StateMismatch{State: StateUnlinked}, nil
	case empty:
		return StateMismatch{State: StateNonexistent}, nil
	default:
		actual, err := filepath.EvalSymlinks(childDir)
		if err != nil {
			return StateMismatch{State: StateNonexistent}, nil
		}
		want, err := resolveLink(filepath.Dir(childDir), entry, false)
		if err != nil {
			return StateMismatch{}, err
		}
		if want == "" || filepath.Clean(actual) != filepath.Clean(want) {
			return StateMismatch{State: StateUnaligned, ObservedLink: actual}, nil
		}
		return StateMismatch{State: StateClean}, nil
	}
}

func reconcileRepoEntry(driver *Driver, childDir string, entry *RepoEntry) (StateMismatch, error) {
	empty, err := IsEmptyDirOrNotExist(childDir)
	if err != nil {
		return StateMismatch{}, err
	}
	if empty {
		return StateMismatch{State: StateNonexistent}, nil
	}

	branch, err := gitSymbolicRef(driver, childDir)
	if err != nil {
		return StateMismatch{}, err
	}
	commit, err := gitHeadCommit(driver, childDir)
	if err != nil {
		return StateMismatch{}, err
	}

	if entry.Commit != "" {
		if !strings.HasPrefix(commit, entry.Commit) {
			return StateMismatch{State: StateUnaligned, ObservedBranch: branch, ObservedCommit: commit}, nil
		}
		return StateMismatch{State: StateClean, ObservedBranch: branch, ObservedCommit: commit}, nil
	}

	if entry.EffectiveBranch() != "" && branch != entry.EffectiveBranch() {
		return StateMismatch{State: StateUnaligned, ObservedBranch: branch, ObservedCommit: commit}, nil
	}
	return StateMismatch{State: StateClean, ObservedBranch: branch, ObservedCommit: commit}, nil
}

func gitSymbolicRef(driver *Driver, dir string) (string, error) {
	out, err := driver.Run(dir, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		if ve, ok := err.(*VcsError); ok && ve.ExitCode == 1 {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func gitHeadCommit(driver *Driver, dir string) (string, error) {
	out, err := driver.Run(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// checkForOverlayStateMatch evaluates overlay parity for every top-level
// overlay entry (spec §4.4, "Overlay parity is evaluated separately").
func checkForOverlayStateMatch(topDir string, manifest *Manifest) (map[string]StateMismatch, error) {
	out := make(map[string]StateMismatch)

	for childPath, entry := range manifest.Repos {
		if !entry.IsOverlay() {
			continue
		}
		placementDir := filepath.Join(topDir, childPath)

		wantTarget, err := resolveLink(topDir, entry, false)
		if err != nil {
			return nil, err
		}
		wantRel, err := filepath.Rel(filepath.Dir(placementDir), wantTarget)
		if err != nil {
			wantRel = wantTarget
		}

		real, err := isRealDir(placementDir)
		if err != nil {
			return nil, err
		}
		if real {
			out[childPath] = StateMismatch{Path: childPath, State: StateUnlinked}
			continue
		}

		empty, err := IsEmptyDirOrNotExist(placementDir)
		if err != nil {
			return nil, err
		}
		if empty {
			out[childPath] = StateMismatch{Path: childPath, State: StateNonexistent}
			continue
		}

		actualTarget, err := filepath.EvalSymlinks(placementDir)
		if err != nil {
			out[childPath] = StateMismatch{Path: childPath, State: StateNonexistent}
			continue
		}
		actualRel, err := filepath.Rel(filepath.Dir(placementDir), actualTarget)
		if err != nil {
			actualRel = actualTarget
		}

		if actualRel == wantRel {
			out[childPath] = StateMismatch{Path: childPath, State: StateOverlayed}
		} else {
			out[childPath] = StateMismatch{Path: childPath, State: StateUnaligned, ObservedLink: actualTarget}
		}
	}
	return out, nil
}
