package gitp

import "strings"

// LinkOptions describes a `link`/`unlink` invocation (spec §6).
type LinkOptions struct {
	Newest  bool
	Filter  string
	Overlay bool
	Force   bool
}

// Link declares target as a link entry (or, with Overlay, a top-level
// overlay entry) pointing at linkTarget, then syncs it (spec §4.5, §4.1).
func Link(ctx *Context, driver *Driver, topDir, target, linkTarget string, opts LinkOptions) error {
	target = strings.Trim(target, "/")
	if opts.Filter != "" {
		if _, err := compileRegex(opts.Filter); err != nil {
			return NewUsageError("invalid --filter regex: %v", err)
		}
	}

	var dir, childName string
	var m *Manifest
	var err error

	if opts.Overlay {
		dir = topDir
		childName = target
		m, err = ctx.Manifests.LoadOrCreate(topDir)
	} else {
		parentRel := parentPathOf(target)
		childName = childNameOf(target)
		dir = joinPath(topDir, parentRel)
		m, err = ctx.Manifests.LoadOrCreate(dir)
	}
	if err != nil {
		return err
	}

	entryType := EntryRepo
	if opts.Overlay {
		entryType = EntryOverlay
	}

	m.Repos[childName] = &RepoEntry{
		Type:       entryType,
		Link:       linkTarget,
		LinkNewest: opts.Newest,
		LinkFilter: opts.Filter,
	}
	if err := ctx.Manifests.Save(m); err != nil {
		return err
	}
	if !opts.Overlay {
		if err := gitignoreAdd(dir, childName); err != nil {
			return err
		}
	}

	return Sync(ctx, driver, topDir, SyncOptions{Force: opts.Force})
}

// Unlink removes a link (or overlay) entry from its manifest and, for a
// non-overlay link, from .gitignore, without touching the materialized
// target (spec §4.8).
func Unlink(ctx *Context, target string, topDir string, overlay bool) error {
	target = strings.Trim(target, "/")

	var dir, childName string
	var m *Manifest
	var err error

	if overlay {
		dir = topDir
		childName = target
		m, err = ctx.Manifests.Load(topDir)
	} else {
		parentRel := parentPathOf(target)
		childName = childNameOf(target)
		dir = joinPath(topDir, parentRel)
		m, err = ctx.Manifests.Load(dir)
	}
	if err != nil {
		return err
	}
	if m == nil {
		return NewUsageError("%s is not a manifest-tracked directory", dir)
	}
	entry, ok := m.Repos[childName]
	if !ok {
		return NewUsageError("%q is not a manifest entry", childName)
	}
	if entry.Link == "" {
		return NewUsageError("%q is not a link entry", childName)
	}
	if overlay != entry.IsOverlay() {
		return NewUsageError("%q overlay-ness does not match --overlay flag", childName)
	}

	delete(m.Repos, childName)
	if err := ctx.Manifests.Save(m); err != nil {
		return err
	}
	if !overlay {
		return gitignoreRemove(dir, childName)
	}
	return nil
}

func parentPathOf(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

func childNameOf(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return p
	}
	return p[i+1:]
}

func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	return base + "/" + rel
}
