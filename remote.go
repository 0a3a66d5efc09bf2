package gitp

import "strings"

// Remote intercepts `remote set-url origin <url>` so the parent manifest's
// recorded url stays in sync with the repo's actual git remote; every other
// `git remote ...` invocation passes straight through to the driver
// (spec §4.8).
func Remote(ctx *Context, driver *Driver, repoDir string, args []string) (string, error) {
	if isSetURLOrigin(args) {
		newURL := args[len(args)-1]

		parentDir, childName := splitParentChild(repoDir)
		m, err := ctx.Manifests.Load(parentDir)
		if err != nil {
			return "", err
		}
		if m != nil {
			if entry, ok := m.Repos[childName]; ok && entry.Link == "" {
				entry.URL = newURL
				if err := ctx.Manifests.Save(m); err != nil {
					return "", err
				}
			}
		}
	}

	fullArgs := append([]string{"remote"}, args...)
	return driver.Run(repoDir, fullArgs...)
}

func isSetURLOrigin(args []string) bool {
	if len(args) < 3 {
		return false
	}
	return args[0] == "set-url" && args[1] == "origin"
}

func splitParentChild(dir string) (parent, child string) {
	dir = strings.TrimRight(dir, "/")
	i := strings.LastIndex(dir, "/")
	if i < 0 {
		return "", dir
	}
	return dir[:i], dir[i+1:]
}
