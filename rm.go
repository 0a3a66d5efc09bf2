package gitp

import (
	"os"
	"path/filepath"
)

// RmOptions controls Rm's clobber behavior.
type RmOptions struct {
	Force bool
}

// Rm removes target from its containing manifest and .gitignore, then
// (unless local changes exist without Force) deletes the directory or
// symlink. Normal files are not manifest entries and are passed through by
// the caller before reaching Rm. Overlays must be removed via Unlink
// instead (spec §4.8).
func Rm(ctx *Context, driver *Driver, containingDir, childName string, opts RmOptions) error {
	m, err := ctx.Manifests.Load(containingDir)
	if err != nil {
		return err
	}
	if m == nil {
		return NewUsageError("%s is not a manifest-tracked directory", containingDir)
	}
	entry, ok := m.Repos[childName]
	if !ok {
		return NewUsageError("%q is not a manifest entry", childName)
	}
	if entry.IsOverlay() {
		return NewUsageError("%q is an overlay; remove it with unlink --overlay", childName)
	}

	path := filepath.Join(containingDir, childName)

	if entry.Link == "" {
		if err := requireClean(ctx, path, opts.Force); err != nil {
			return err
		}
	}

	delete(m.Repos, childName)
	if err := ctx.Manifests.Save(m); err != nil {
		return err
	}
	if err := gitignoreRemove(containingDir, childName); err != nil {
		return err
	}

	if err := os.RemoveAll(path); err != nil {
		return NewFsError("remove", path, err)
	}
	return nil
}
