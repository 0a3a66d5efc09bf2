package gitp

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/vcs"
)

// gitRepo wraps Masterminds/vcs's GitRepo with the clone/update/mirror
// semantics spec §4.5 needs. Grounded on golang-dep's vcs_repo.go, trimmed
// to git only (gitp's scope per spec §1) and extended with the
// clone-from-mirror URL rewrite (step 5) the original tool never needed.
type gitRepo struct {
	*vcs.GitRepo
	driver *Driver
}

func newGitRepo(remote, local string, driver *Driver) (*gitRepo, error) {
	r, err := vcs.NewGitRepo(remote, local)
	if err != nil {
		return nil, Wrap(err, "constructing git repo handle")
	}
	return &gitRepo{GitRepo: r, driver: driver}, nil
}

// clone clones r.Remote() into r.LocalPath(). When srcIsLocal is true, the
// remote is a local mirror repo: after cloning, every remote's fetch/push
// URL is rewritten to the value observed in src, then fetched once, so the
// resulting clone's remotes point at the original upstreams rather than the
// mirror (spec §4.5 step 5).
func (r *gitRepo) clone(srcIsLocal bool) error {
	if _, err := r.driver.Run(".", "clone", "--recursive", r.Remote(), r.LocalPath()); err != nil {
		if basePath := filepath.Dir(filepath.FromSlash(r.LocalPath())); isUnableToCreateDirErr(err) {
			if _, statErr := os.Stat(basePath); os.IsNotExist(statErr) {
				if mkErr := os.MkdirAll(basePath, 0o755); mkErr != nil {
					return Wrap(mkErr, "creating parent directory for clone")
				}
				if _, err := r.driver.Run(".", "clone", r.Remote(), r.LocalPath()); err != nil {
					return err
				}
				if !srcIsLocal {
					return nil
				}
				return r.rewriteRemotesFrom(r.Remote())
			}
		}
		return err
	}

	if !srcIsLocal {
		return nil
	}
	return r.rewriteRemotesFrom(r.Remote())
}

// rewriteRemotesFrom reads every remote URL configured in mirrorDir (the
// local mirror repo just cloned from) and applies the same URLs to r's
// remotes, then fetches once so history for those upstreams is available.
func (r *gitRepo) rewriteRemotesFrom(mirrorDir string) error {
	out, err := r.driver.Run(mirrorDir, "remote", "-v")
	if err != nil {
		return err
	}

	fetchURLs := map[string]string{}
	pushURLs := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		name, url, kind := fields[0], fields[1], fields[2]
		switch kind {
		case "(fetch)":
			fetchURLs[name] = url
		case "(push)":
			pushURLs[name] = url
		}
	}

	for name, url := range fetchURLs {
		if _, err := r.driver.Run(r.LocalPath(), "remote", "set-url", name, url); err != nil {
			return err
		}
	}
	for name, url := range pushURLs {
		if _, err := r.driver.Run(r.LocalPath(), "remote", "set-url", "--push", name, url); err != nil {
			return err
		}
	}

	_, err = r.driver.Run(r.LocalPath(), "fetch", "--all")
	return err
}

// fetch fetches all remotes and tags.
func (r *gitRepo) fetch() error {
	_, err := r.driver.Run(r.LocalPath(), "fetch", "--tags", "--all")
	return err
}

// pull fast-forwards branch from remote after fetching.
func (r *gitRepo) pull() error {
	if err := r.fetch(); err != nil {
		return err
	}
	detached, err := r.isDetachedHead()
	if err != nil {
		return Wrap(err, "checking detached HEAD")
	}
	if detached {
		return nil
	}
	_, err = r.driver.Run(r.LocalPath(), "pull", "--ff-only")
	return err
}

// checkoutRef checks out ref (branch, tag, or commit) in the working tree.
func (r *gitRepo) checkoutRef(ref string) error {
	_, err := r.driver.Run(r.LocalPath(), "checkout", ref)
	return err
}

// resetHard resets the working tree and index to ref, discarding local
// changes, used to re-assert a commit pin after pulling (spec §4.5 step 6).
func (r *gitRepo) resetHard(ref string) error {
	_, err := r.driver.Run(r.LocalPath(), "reset", "--hard", ref)
	return err
}

// currentBranch returns the symbolic name of HEAD, or "" when detached.
func (r *gitRepo) currentBranch() (string, error) {
	out, err := r.driver.Run(r.LocalPath(), "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		if ve, ok := err.(*VcsError); ok && ve.ExitCode == 1 {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// headCommit returns the full SHA of HEAD.
func (r *gitRepo) headCommit() (string, error) {
	out, err := r.driver.Run(r.LocalPath(), "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// remoteURL returns the fetch URL configured for name, or "" if absent.
func (r *gitRepo) remoteURL(name string) (string, error) {
	out, err := r.driver.Run(r.LocalPath(), "remote", "get-url", name)
	if err != nil {
		if ve, ok := err.(*VcsError); ok && ve.ExitCode != 0 {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// setRemoteURL sets name's URL with `git remote set-url name url`.
func (r *gitRepo) setRemoteURL(name, url string) error {
	_, err := r.driver.Run(r.LocalPath(), "remote", "set-url", name, url)
	return err
}

// isUnableToCreateDirErr checks whether err is git's multi-lingual
// "could not create work tree dir" failure (kept from golang-dep's
// vcs_repo.go isUnableToCreateDir).
func isUnableToCreateDirErr(err error) bool {
	msg := err.Error()
	prefixes := []string{
		"could not create work tree dir",
		"不能创建工作区目录",
		"no s'ha pogut crear el directori d'arbre de treball",
		"impossible de créer le répertoire de la copie de travail",
		"kunde inte skapa arbetskatalogen",
	}
	for _, p := range prefixes {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// isDetachedHead detects whether the repo at r.LocalPath() is in
// "detached head" state, kept from golang-dep's vcs_repo.go.
func (r *gitRepo) isDetachedHead() (bool, error) {
	p := filepath.Join(r.LocalPath(), ".git", "HEAD")
	contents, err := os.ReadFile(p)
	if err != nil {
		return false, err
	}
	contents = bytes.TrimSpace(contents)
	return !bytes.HasPrefix(contents, []byte("ref: ")), nil
}
