package gitp

import "strings"

// CommitOptions carries the non-interactive message options spec §4.8
// requires (-m/-C/-F/--file/--no-edit); interactive forms (-p/-e) are
// rejected by Validate, which Commit calls before touching any repo.
type CommitOptions struct {
	Message    string // -m
	ReuseRef   string // -C <commit>
	File       string // -F/--file <path>
	NoEdit     bool   // --no-edit
	Patch      bool   // -p, rejected
	Edit       bool   // -e, rejected
}

// Validate rejects the interactive forms spec §4.8/§4.7 disallow.
func (o CommitOptions) Validate() error {
	if o.Patch {
		return NewPreconditionError("interactive commit mode (-p) is not supported", "use -m/-F instead")
	}
	if o.Edit {
		return NewPreconditionError("interactive commit mode (-e) is not supported", "use -m/-F instead")
	}
	if o.Message == "" && o.ReuseRef == "" && o.File == "" && !o.NoEdit {
		return NewUsageError("commit requires one of -m, -C, -F/--file, or --no-edit")
	}
	return nil
}

func (o CommitOptions) commitArgs() []string {
	args := []string{"commit"}
	switch {
	case o.Message != "":
		args = append(args, "-m", o.Message)
	case o.ReuseRef != "":
		args = append(args, "-C", o.ReuseRef)
	case o.File != "":
		args = append(args, "-F", o.File)
	case o.NoEdit:
		args = append(args, "--no-edit")
	}
	return args
}

// Commit walks the tree rooted at dir in forward depth-first order,
// running the underlying commit verbatim in every node with staged
// changes; overlay targets are skipped. Per-node failures increment the
// returned error count and do not abort the walk (spec §4.8, §7 kind 3).
func Commit(ctx *Context, driver *Driver, dir string, opts CommitOptions) (int, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}

	errCount := 0
	err := walkMaterialized(dir, "", true, func(path string, entry *RepoEntry) error {
		if entry != nil && entry.Link != "" {
			return nil
		}
		if entry != nil && entry.IsOverlay() {
			return nil
		}

		staged, err := hasStagedChanges(driver, path)
		if err != nil {
			ctx.Log.WithError(err).Warnf("checking staged changes in %s", path)
			errCount++
			return nil
		}
		if !staged {
			return nil
		}

		if _, err := driver.Run(path, opts.commitArgs()...); err != nil {
			ctx.Log.WithError(err).Warnf("commit failed in %s", path)
			errCount++
		}
		return nil
	})
	return errCount, err
}

func hasStagedChanges(driver *Driver, path string) (bool, error) {
	out, err := driver.Run(path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	for _, line := range splitLines(out) {
		if line == "" {
			continue
		}
		if line[0] != ' ' && line[0] != '?' {
			return true, nil
		}
	}
	return false, nil
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}
