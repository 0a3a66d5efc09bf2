package gitp

import (
	"path/filepath"
	"strings"
)

// NewChildOptions describes a `new` invocation (spec §4.5, §6).
type NewChildOptions struct {
	From       string // --from URL
	Branch     string
	Commit     string
	Link       string
	LinkNewest bool
	LinkFilter string
	Force      bool
}

// NewChild validates dst, creates the parent manifest if absent, rejects
// nested-conflict additions, appends a RepoEntry, appends dst's path to the
// nearest .gitignore, then syncs just that child. On failure the entry is
// rolled back via Rm (spec §4.5 "new" variant).
func NewChild(ctx *Context, driver *Driver, topDir, dst string, opts NewChildOptions) error {
	dst = strings.Trim(dst, "/")
	if strings.Contains(dst, "..") {
		return NewUsageError("child path %q must not contain ..", dst)
	}

	parentRel, childName := filepath.Split(dst)
	parentDir := filepath.Join(topDir, parentRel)

	parentManifest, err := ctx.Manifests.LoadOrCreate(parentDir)
	if err != nil {
		return err
	}

	if _, exists := parentManifest.Repos[childName]; exists {
		return NewUsageError("%q already exists in %s", childName, ManifestName)
	}

	if err := rejectReparenting(ctx, filepath.Join(parentDir, childName)); err != nil {
		return err
	}

	entry := &RepoEntry{
		Type:       EntryRepo,
		URL:        opts.From,
		Branch:     opts.Branch,
		Commit:     opts.Commit,
		Link:       opts.Link,
		LinkNewest: opts.LinkNewest,
		LinkFilter: opts.LinkFilter,
	}
	if entry.Link != "" {
		entry.URL = ""
	}

	parentManifest.Repos[childName] = entry
	if err := ctx.Manifests.Save(parentManifest); err != nil {
		return err
	}
	if err := gitignoreAdd(parentDir, childName); err != nil {
		return err
	}

	if err := Sync(ctx, driver, topDir, SyncOptions{Target: dst + "/", Force: opts.Force}); err != nil {
		rmErr := Rm(ctx, driver, parentDir, childName, RmOptions{Force: true})
		if rmErr != nil {
			ctx.Log.WithError(rmErr).Warn("rolling back failed new: rm also failed")
		}
		return err
	}
	return nil
}

// rejectReparenting implements spec scenario 5: a candidate new entry
// cannot reparent an existing descendant that is already materialized on
// disk at or below path.
func rejectReparenting(ctx *Context, path string) error {
	real, err := isRealDir(path)
	if err != nil {
		return err
	}
	if !real {
		return nil
	}
	empty, err := IsEmptyDirOrNotExist(path)
	if err != nil {
		return err
	}
	if !empty {
		return NewPreconditionError(
			"would reparent an existing descendant at "+path,
			"remove the existing directory first, or choose a different path",
		)
	}
	return nil
}
