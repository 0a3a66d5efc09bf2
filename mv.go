package gitp

import (
	"os"
	"path/filepath"

	shutil "github.com/termie/go-shutil"
)

// Mv relocates a repo entry within or across manifests, updating both
// source and destination manifests and gitignores. Moves of anything that
// is not a manifest entry are not handled here: the CLI hands them unchanged
// to the underlying VCS's mv, which does not split a move across a
// repository boundary into a remove and an add.
func Mv(ctx *Context, srcDir, srcName, dstDir, dstName string) error {
	srcManifest, err := ctx.Manifests.Load(srcDir)
	if err != nil {
		return err
	}
	if srcManifest == nil {
		return NewUsageError("%s is not a manifest-tracked directory", srcDir)
	}
	entry, ok := srcManifest.Repos[srcName]
	if !ok {
		return NewUsageError("%q is not a manifest entry", srcName)
	}

	dstManifest, err := ctx.Manifests.LoadOrCreate(dstDir)
	if err != nil {
		return err
	}
	if _, exists := dstManifest.Repos[dstName]; exists {
		return NewUsageError("%q already exists in destination manifest", dstName)
	}

	srcPath := filepath.Join(srcDir, srcName)
	dstPath := filepath.Join(dstDir, dstName)

	if err := moveTree(srcPath, dstPath); err != nil {
		return err
	}

	delete(srcManifest.Repos, srcName)
	dstManifest.Repos[dstName] = entry

	if err := ctx.Manifests.Save(srcManifest); err != nil {
		return err
	}
	if srcDir != dstDir {
		if err := ctx.Manifests.Save(dstManifest); err != nil {
			return err
		}
	}

	if err := gitignoreRemove(srcDir, srcName); err != nil {
		return err
	}
	return gitignoreAdd(dstDir, dstName)
}

// moveTree relocates src to dst, using go-shutil's recursive copy when a
// plain rename cannot cross the boundary (e.g. different repos), falling
// back to rename+remove when it can.
func moveTree(src, dst string) error {
	if err := renameWithFallback(src, dst); err == nil {
		return nil
	}
	if err := shutil.CopyTree(src, dst, nil); err != nil {
		return Wrapf(err, "copying %s to %s", src, dst)
	}
	if err := os.RemoveAll(src); err != nil {
		return NewFsError("remove", src, err)
	}
	return nil
}
