package gitp

import (
	"path/filepath"
	"strings"
)

// CheckoutOptions controls the three recognized checkout modes (spec §4.5).
type CheckoutOptions struct {
	Force bool
}

// Checkout implements the ref-only mode: verify no uncommitted changes in
// the subtree, check out ref on the top repo, update the parent manifest
// entry's branch or commit, then sync descendants (spec §4.5).
func Checkout(ctx *Context, driver *Driver, topDir, ref string, isBranchOrTag bool, opts CheckoutOptions) error {
	if err := requireClean(ctx, topDir, opts.Force); err != nil {
		return err
	}

	r, err := newGitRepo("", topDir, driver)
	if err != nil {
		return err
	}
	if err := r.checkoutRef(ref); err != nil {
		return err
	}

	parent, err := ctx.Manifests.ParentOf(topDir)
	if err != nil {
		return err
	}
	if parent != nil {
		childName := filepath.Base(topDir)
		if entry, ok := parent.Repos[childName]; ok {
			if isBranchOrTag {
				entry.Branch = ref
				entry.Commit = ""
			} else {
				entry.Commit = ref
			}
			if err := ctx.Manifests.Save(parent); err != nil {
				return err
			}
		}
	}

	return Sync(ctx, driver, topDir, SyncOptions{Force: opts.Force})
}

// CheckoutManifestRef implements the per-child-repo-path mode: read the
// manifest from refSpec using `show <ref>:.gitp_manifest`, overwrite
// matching entries in the current manifest, then sync the affected
// children (spec §4.5).
func CheckoutManifestRef(ctx *Context, driver *Driver, dir, ref string, childPaths []string, opts CheckoutOptions) error {
	out, err := driver.Run(dir, "show", ref+":"+ManifestName)
	if err != nil {
		return Wrapf(err, "reading manifest at ref %s", ref)
	}

	refManifest, err := parseManifest(ManifestName+"@"+ref, []byte(out))
	if err != nil {
		return err
	}

	current, err := ctx.Manifests.LoadOrCreate(dir)
	if err != nil {
		return err
	}

	for _, childPath := range childPaths {
		entry, ok := refManifest.Repos[childPath]
		if !ok {
			return NewUsageError("%s has no entry %q at ref %s", ManifestName, childPath, ref)
		}
		current.Repos[childPath] = entry
	}
	if err := ctx.Manifests.Save(current); err != nil {
		return err
	}

	for _, childPath := range childPaths {
		if err := Sync(ctx, driver, dir, SyncOptions{Target: childPath + "/", Force: opts.Force}); err != nil {
			return err
		}
	}
	return nil
}

// isRepoRootArg reports whether arg names a manifest-tracked child path
// (as opposed to a plain file, which falls through to the underlying VCS
// per spec §4.5's third checkout mode).
func isRepoRootArg(m *Manifest, arg string) bool {
	if m == nil {
		return false
	}
	key := strings.TrimSuffix(arg, "/")
	_, ok := m.Repos[key]
	return ok
}
