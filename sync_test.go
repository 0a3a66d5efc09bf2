package gitp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSyncClonesDeclaredChild(t *testing.T) {
	root := t.TempDir()
	upstream := filepath.Join(root, "upstream")
	if err := os.Mkdir(upstream, 0o755); err != nil {
		t.Fatalf("mkdir upstream: %v", err)
	}
	initGitRepo(t, upstream)
	d := NewDriver("git", false)
	commitFile(t, d, upstream, "hello.txt", "hi\n")

	top := filepath.Join(root, "top")
	if err := os.Mkdir(top, 0o755); err != nil {
		t.Fatalf("mkdir top: %v", err)
	}

	ctx := NewContextIn(top)
	m, err := ctx.Manifests.LoadOrCreate(top)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	m.Repos["kid"] = &RepoEntry{Type: EntryRepo, URL: upstream}
	if err := ctx.Manifests.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := Sync(ctx, d, top, SyncOptions{}); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	kidDir := filepath.Join(top, "kid")
	if _, err := os.Stat(filepath.Join(kidDir, "hello.txt")); err != nil {
		t.Fatalf("expected cloned child to contain hello.txt: %v", err)
	}

	branch, err := gitSymbolicRef(d, kidDir)
	if err != nil {
		t.Fatalf("gitSymbolicRef: %v", err)
	}
	if branch != "master" {
		t.Errorf("cloned child branch = %q, want %q", branch, "master")
	}
}

func TestSyncEnforcesCommitPin(t *testing.T) {
	root := t.TempDir()
	upstream := filepath.Join(root, "upstream")
	if err := os.Mkdir(upstream, 0o755); err != nil {
		t.Fatalf("mkdir upstream: %v", err)
	}
	initGitRepo(t, upstream)
	d := NewDriver("git", false)
	commitFile(t, d, upstream, "a.txt", "first\n")
	pinnedCommit, err := gitHeadCommit(d, upstream)
	if err != nil {
		t.Fatalf("gitHeadCommit: %v", err)
	}
	commitFile(t, d, upstream, "b.txt", "second\n")

	top := filepath.Join(root, "top")
	if err := os.Mkdir(top, 0o755); err != nil {
		t.Fatalf("mkdir top: %v", err)
	}

	ctx := NewContextIn(top)
	m, err := ctx.Manifests.LoadOrCreate(top)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	m.Repos["kid"] = &RepoEntry{Type: EntryRepo, URL: upstream, Commit: pinnedCommit}
	if err := ctx.Manifests.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := Sync(ctx, d, top, SyncOptions{}); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	kidDir := filepath.Join(top, "kid")
	gotCommit, err := gitHeadCommit(d, kidDir)
	if err != nil {
		t.Fatalf("gitHeadCommit(kid): %v", err)
	}
	if gotCommit != pinnedCommit {
		t.Errorf("kid HEAD = %s, want pinned commit %s", gotCommit, pinnedCommit)
	}
	// The pin must win even though upstream has a newer commit: b.txt must
	// not be present in the cloned child.
	if _, err := os.Stat(filepath.Join(kidDir, "b.txt")); !os.IsNotExist(err) {
		t.Errorf("expected b.txt to be absent at the pinned commit, stat err = %v", err)
	}
}
