package gitp

import (
	"os"
	"path/filepath"
)

// Add routes each path in paths to its containing repo and runs the
// underlying `git add` there. With no paths, it fans out `git add -A` to
// every materialized, non-link node (spec §4.8).
func Add(ctx *Context, driver *Driver, dir string, paths []string) error {
	if len(paths) == 0 {
		return walkMaterialized(dir, "", true, func(path string, entry *RepoEntry) error {
			if entry != nil && entry.Link != "" {
				return nil
			}
			_, err := driver.Run(path, "add", "-A")
			return err
		})
	}

	byRepo := make(map[string][]string)
	for _, p := range paths {
		repoDir, rel, err := containingRepo(ctx, dir, p)
		if err != nil {
			return err
		}
		byRepo[repoDir] = append(byRepo[repoDir], rel)
	}

	for repoDir, rels := range byRepo {
		args := append([]string{"add"}, rels...)
		if _, err := driver.Run(repoDir, args...); err != nil {
			return err
		}
	}
	return nil
}

// containingRepo resolves p (relative to dir) to the nearest ancestor
// directory that is itself a materialized repo, and the path relative to
// that repo.
func containingRepo(ctx *Context, dir, p string) (repoDir, relPath string, err error) {
	abs := filepath.Join(dir, p)
	cur := filepath.Dir(abs)
	for {
		if _, statErr := os.Stat(filepath.Join(cur, ".git")); statErr == nil {
			rel, relErr := filepath.Rel(cur, abs)
			if relErr != nil {
				return "", "", Wrap(relErr, "computing relative path")
			}
			return cur, rel, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", "", NewUsageError("%s is not inside any repository", p)
		}
		cur = parent
	}
}
