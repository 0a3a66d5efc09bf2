package gitp

import (
	"path/filepath"
	"strings"
)

// targetFilter implements the target-path semantics shared by the Sync
// Engine (§4.5 step 2) and the Recursive Executor (§4.6): "sub" (no
// trailing separator) restricts to that one node; "sub/" restricts to that
// node and everything beneath it; all other nodes are still traversed
// silently so their matching descendants can be reached.
type targetFilter struct {
	raw       string
	withChild bool // true when raw ends in "/": descend into matches too
	path      string
}

func newTargetFilter(target string) *targetFilter {
	if target == "" {
		return nil
	}
	tf := &targetFilter{raw: target}
	if strings.HasSuffix(target, "/") {
		tf.withChild = true
		tf.path = strings.TrimSuffix(target, "/")
	} else {
		tf.path = target
	}
	return tf
}

// matches reports whether relPath (separator-joined, relative to the walk
// root) should be processed given this filter.
func (tf *targetFilter) matches(relPath string) bool {
	if tf == nil {
		return true
	}
	if relPath == tf.path {
		return true
	}
	if tf.withChild && strings.HasPrefix(relPath, tf.path+string(filepath.Separator)) {
		return true
	}
	return false
}

// mayContainMatch reports whether relPath is the walk root, an ancestor of
// the filter's path, or itself matches, used to decide whether to keep recursing even when the
// current node itself doesn't match (so deeper matches can still be found).
func (tf *targetFilter) mayContainMatch(relPath string) bool {
	if tf == nil {
		return true
	}
	if relPath == "" {
		return true
	}
	if strings.HasPrefix(tf.path, relPath+string(filepath.Separator)) {
		return true
	}
	return tf.matches(relPath)
}

// manifestVisitor is called once per declared child while walking a
// manifest tree; returning an error aborts the walk.
type manifestVisitor func(childDir, relPath string, entry *RepoEntry) error

// walkManifests performs a depth-first, forward-order traversal of dir's
// manifest tree, calling visit for every declared repo child (overlay
// entries are visited at the top level only and skipped below it; see
// checkForOverlayStateMatch for their state), honoring target/recurse
// per spec §4.4/§4.5.
func walkManifests(cache *ManifestCache, dir, target string, recurse bool, visit manifestVisitor) error {
	tf := newTargetFilter(target)
	return walkManifestsRec(cache, dir, "", tf, recurse, visit)
}

func walkManifestsRec(cache *ManifestCache, dir, relPrefix string, tf *targetFilter, recurse bool, visit manifestVisitor) error {
	m, err := cache.Load(dir)
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}

	for _, childPath := range m.SortedChildPaths() {
		entry := m.Repos[childPath]
		if entry.IsOverlay() && relPrefix != "" {
			continue // overlay entries below the top are ignored (spec §3 invariant 3)
		}

		relPath := childPath
		if relPrefix != "" {
			relPath = filepath.Join(relPrefix, childPath)
		}
		childDir := filepath.Join(dir, childPath)

		if tf.matches(relPath) {
			if err := visit(childDir, relPath, entry); err != nil {
				return err
			}
		}

		if !recurse && tf == nil {
			continue
		}
		if entry.Link != "" {
			continue // do not descend into remotes that are themselves linked
		}
		if tf != nil && !tf.mayContainMatch(relPath) {
			continue
		}
		if err := walkManifestsRec(cache, childDir, relPath, tf, recurse, visit); err != nil {
			return err
		}
	}
	return nil
}

// materializedVisitor is called once per materialized node: the root, then
// every declared child (link entries included) whose directory exists and
// is non-empty.
type materializedVisitor func(path string, entry *RepoEntry) error

// walkMaterialized is checkForChanges' traversal: same shape as
// walkManifests, but rooted with a nil entry for dir itself so the root
// repo's own changes are considered too.
func walkMaterialized(dir, target string, recurse bool, visit materializedVisitor) error {
	cache := NewManifestCache()
	if err := visit(dir, nil); err != nil {
		return err
	}
	return walkManifests(cache, dir, target, recurse, func(childDir, _ string, entry *RepoEntry) error {
		if empty, err := IsEmptyDirOrNotExist(childDir); err != nil || empty {
			return err
		}
		return visit(childDir, entry)
	})
}
