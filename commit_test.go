package gitp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCommitOptionsValidate(t *testing.T) {
	cases := []struct {
		name    string
		opts    CommitOptions
		wantErr bool
	}{
		{"message only", CommitOptions{Message: "hi"}, false},
		{"no-edit only", CommitOptions{NoEdit: true}, false},
		{"nothing set", CommitOptions{}, true},
		{"patch rejected", CommitOptions{Patch: true}, true},
		{"edit rejected", CommitOptions{Edit: true}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.opts.Validate()
			if (err != nil) != c.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestCommitArgs(t *testing.T) {
	cases := []struct {
		name string
		opts CommitOptions
		want []string
	}{
		{"message", CommitOptions{Message: "hello"}, []string{"commit", "-m", "hello"}},
		{"reuse", CommitOptions{ReuseRef: "abc123"}, []string{"commit", "-C", "abc123"}},
		{"file", CommitOptions{File: "msg.txt"}, []string{"commit", "-F", "msg.txt"}},
		{"no-edit", CommitOptions{NoEdit: true}, []string{"commit", "--no-edit"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.opts.commitArgs()
			if len(got) != len(c.want) {
				t.Fatalf("commitArgs() = %v, want %v", got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Errorf("commitArgs()[%d] = %q, want %q", i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestCommitStagesAcrossTree(t *testing.T) {
	root := t.TempDir()
	initGitRepo(t, root)
	d := NewDriver("git", false)
	commitFile(t, d, root, "root.txt", "root\n")

	ctx := NewContextIn(root)
	if _, err := ctx.Manifests.LoadOrCreate(root); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "root.txt"), []byte("changed\n"), 0o644); err != nil {
		t.Fatalf("writing change: %v", err)
	}
	if _, err := d.Run(root, "add", "root.txt"); err != nil {
		t.Fatalf("git add: %v", err)
	}

	errCount, err := Commit(ctx, d, root, CommitOptions{Message: "update root"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if errCount != 0 {
		t.Errorf("errCount = %d, want 0", errCount)
	}

	staged, err := hasStagedChanges(d, root)
	if err != nil {
		t.Fatalf("hasStagedChanges: %v", err)
	}
	if staged {
		t.Error("expected no staged changes after commit")
	}
}

func TestCommitSkipsCleanRepo(t *testing.T) {
	root := t.TempDir()
	initGitRepo(t, root)
	d := NewDriver("git", false)
	commitFile(t, d, root, "root.txt", "root\n")

	ctx := NewContextIn(root)
	if _, err := ctx.Manifests.LoadOrCreate(root); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	errCount, err := Commit(ctx, d, root, CommitOptions{Message: "noop"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if errCount != 0 {
		t.Errorf("errCount = %d, want 0", errCount)
	}
}
