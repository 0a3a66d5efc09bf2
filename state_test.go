package gitp

import (
	"os"
	"path/filepath"
	"testing"
)

func commitFile(t *testing.T, d *Driver, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	if _, err := d.Run(dir, "add", name); err != nil {
		t.Fatalf("git add %s: %v", name, err)
	}
	if _, err := d.Run(dir, "commit", "-q", "-m", "add "+name); err != nil {
		t.Fatalf("git commit %s: %v", name, err)
	}
}

func TestGitSymbolicRefAndHeadCommit(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)
	d := NewDriver("git", false)
	commitFile(t, d, dir, "a.txt", "one\n")

	branch, err := gitSymbolicRef(d, dir)
	if err != nil {
		t.Fatalf("gitSymbolicRef: %v", err)
	}
	if branch != "master" {
		t.Errorf("gitSymbolicRef = %q, want %q", branch, "master")
	}

	commit, err := gitHeadCommit(d, dir)
	if err != nil {
		t.Fatalf("gitHeadCommit: %v", err)
	}
	if len(commit) != 40 {
		t.Errorf("expected a 40-character commit sha, got %q", commit)
	}
}

func TestGitSymbolicRefDetachedHead(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)
	d := NewDriver("git", false)
	commitFile(t, d, dir, "a.txt", "one\n")

	commit, err := gitHeadCommit(d, dir)
	if err != nil {
		t.Fatalf("gitHeadCommit: %v", err)
	}
	if _, err := d.Run(dir, "checkout", "-q", commit); err != nil {
		t.Fatalf("detaching HEAD: %v", err)
	}

	branch, err := gitSymbolicRef(d, dir)
	if err != nil {
		t.Fatalf("gitSymbolicRef on detached HEAD: %v", err)
	}
	if branch != "" {
		t.Errorf("expected empty branch on detached HEAD, got %q", branch)
	}
}

func TestHasLocalWork(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)
	d := NewDriver("git", false)
	commitFile(t, d, dir, "a.txt", "one\n")

	dirty, err := hasLocalWork(d, dir, ChangeOptions{})
	if err != nil {
		t.Fatalf("hasLocalWork on clean repo: %v", err)
	}
	if dirty {
		t.Error("expected clean repo to report no local work")
	}

	if err := os.WriteFile(filepath.Join(dir, "untracked.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing untracked file: %v", err)
	}

	dirty, err = hasLocalWork(d, dir, ChangeOptions{})
	if err != nil {
		t.Fatalf("hasLocalWork with untracked file: %v", err)
	}
	if !dirty {
		t.Error("expected untracked file to count as local work by default")
	}

	dirty, err = hasLocalWork(d, dir, ChangeOptions{IgnoreUntracked: true})
	if err != nil {
		t.Fatalf("hasLocalWork with IgnoreUntracked: %v", err)
	}
	if dirty {
		t.Error("expected untracked file to be ignored when IgnoreUntracked is set")
	}
}

func TestReconcileRepoEntryDetectsUnaligned(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)
	d := NewDriver("git", false)
	commitFile(t, d, dir, "a.txt", "one\n")

	entry := &RepoEntry{URL: "git@example.com:child.git", Branch: "release"}
	mm, err := reconcileRepoEntry(d, dir, entry)
	if err != nil {
		t.Fatalf("reconcileRepoEntry: %v", err)
	}
	if mm.State != StateUnaligned {
		t.Errorf("State = %v, want StateUnaligned (repo is on master, manifest wants release)", mm.State)
	}
	if mm.ObservedBranch != "master" {
		t.Errorf("ObservedBranch = %q, want %q", mm.ObservedBranch, "master")
	}
}

func TestReconcileRepoEntryClean(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)
	d := NewDriver("git", false)
	commitFile(t, d, dir, "a.txt", "one\n")

	entry := &RepoEntry{URL: "git@example.com:child.git"}
	mm, err := reconcileRepoEntry(d, dir, entry)
	if err != nil {
		t.Fatalf("reconcileRepoEntry: %v", err)
	}
	if mm.State != StateClean {
		t.Errorf("State = %v, want StateClean", mm.State)
	}
}

func TestReconcileRepoEntryNonexistent(t *testing.T) {
	dir := t.TempDir()
	entry := &RepoEntry{URL: "git@example.com:child.git"}
	mm, err := reconcileRepoEntry(NewDriver("git", false), filepath.Join(dir, "missing"), entry)
	if err != nil {
		t.Fatalf("reconcileRepoEntry: %v", err)
	}
	if mm.State != StateNonexistent {
		t.Errorf("State = %v, want StateNonexistent", mm.State)
	}
}
