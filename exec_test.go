package gitp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExecRunsAcrossMatchingNodes(t *testing.T) {
	root := t.TempDir()
	initGitRepo(t, root)
	d := NewDriver("git", false)
	commitFile(t, d, root, "root.txt", "root\n")

	ctx := NewContextIn(root)
	m, err := ctx.Manifests.LoadOrCreate(root)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	kidDir := filepath.Join(root, "kid")
	if err := os.Mkdir(kidDir, 0o755); err != nil {
		t.Fatalf("mkdir kid: %v", err)
	}
	initGitRepo(t, kidDir)
	commitFile(t, d, kidDir, "kid.txt", "kid\n")
	m.Repos["kid"] = &RepoEntry{Type: EntryRepo, URL: "git@example.com:kid.git"}
	if err := ctx.Manifests.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	results, failures, err := Exec(ctx, d, root, []string{"git rev-parse HEAD"}, ExecOptions{})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if failures != 0 {
		t.Fatalf("expected no failures, got %d: %+v", failures, results)
	}

	var gotRoot, gotKid bool
	for _, r := range results {
		if r.Skipped {
			t.Errorf("unexpected skip for %s: %s", r.Path, r.SkipWhy)
			continue
		}
		if r.Path == filepath.Clean(root) {
			gotRoot = true
		}
		if r.Path == "kid" {
			gotKid = true
		}
	}
	if !gotRoot {
		t.Error("expected the root repo itself to be included")
	}
	if !gotKid {
		t.Error("expected the declared child \"kid\" to be included")
	}
}

func TestExecSkipsUnmaterializedTarget(t *testing.T) {
	root := t.TempDir()
	initGitRepo(t, root)

	ctx := NewContextIn(root)
	m, err := ctx.Manifests.LoadOrCreate(root)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	m.Repos["absent"] = &RepoEntry{Type: EntryRepo, URL: "git@example.com:absent.git"}
	if err := ctx.Manifests.Save(m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	d := NewDriver("git", false)
	results, _, err := Exec(ctx, d, root, []string{"true"}, ExecOptions{Targets: []string{"absent"}})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(results) != 1 || !results[0].Skipped || results[0].SkipWhy != "not materialized" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestExecUnresolvedTargetIsUsageError(t *testing.T) {
	root := t.TempDir()
	initGitRepo(t, root)
	ctx := NewContextIn(root)
	d := NewDriver("git", false)

	_, _, err := Exec(ctx, d, root, []string{"true"}, ExecOptions{Targets: []string{"nope"}})
	if err == nil {
		t.Fatal("expected error for a target path that matches no manifest entry")
	}
	if _, ok := Cause(err).(*UsageError); !ok {
		t.Errorf("expected *UsageError, got %T", err)
	}
}
