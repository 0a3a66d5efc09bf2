package gitp

// PushOptions controls Push's clobber/force behavior.
type PushOptions struct {
	Force bool
}

// Push walks the tree in reverse depth-first order (children before
// parent), pushing only nodes with outstanding local commits. An unaligned
// subtree aborts unless Force. When the top manifest declares a lock
// server, the whole walk runs under a single acquired lock (spec §4.8).
func Push(ctx *Context, driver *Driver, topDir string, opts PushOptions) error {
	topManifest, err := ctx.Manifests.LoadOrCreate(topDir)
	if err != nil {
		return err
	}

	mismatches, err := checkForStateMatch(driver, ctx.Manifests, topDir, "", true)
	if err != nil {
		return err
	}
	if len(mismatches) > 0 && !opts.Force {
		return NewPreconditionError("unaligned subtree blocks push", "pass --force to push anyway")
	}

	run := func() error {
		return pushReverse(ctx, driver, topDir)
	}

	if topManifest.LockServer == "" {
		return run()
	}

	dial := func(addr string) (LockClient, error) { return DialLock(ctx, addr) }
	if ctx.LockDial != nil {
		dial = ctx.LockDial
	}
	client, err := dial(topManifest.LockServer)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.WithLock(run)
}

// pushReverse collects every materialized node (children first) and pushes
// those carrying unpushed commits.
func pushReverse(ctx *Context, driver *Driver, topDir string) error {
	var order []string
	if err := walkMaterialized(topDir, "", true, func(path string, entry *RepoEntry) error {
		if entry != nil && entry.Link != "" {
			return nil
		}
		order = append(order, path)
		return nil
	}); err != nil {
		return err
	}

	for i := len(order) - 1; i >= 0; i-- {
		path := order[i]
		changes, err := checkForChanges(driver, path, ChangeOptions{Recurse: false})
		if err != nil {
			return err
		}
		needsPush := false
		for _, c := range changes {
			if c.Path == path && c.UnpushedCommitCount > 0 {
				needsPush = true
			}
		}
		if !needsPush {
			continue
		}
		if _, err := driver.Run(path, "push"); err != nil {
			return Wrapf(err, "pushing %s", path)
		}
	}
	return nil
}
