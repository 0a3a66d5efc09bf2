package gitp

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func initGitRepo(t *testing.T, dir string) {
	t.Helper()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(cmd.Environ(),
			"GIT_AUTHOR_NAME=gitp-test", "GIT_AUTHOR_EMAIL=gitp-test@example.com",
			"GIT_COMMITTER_NAME=gitp-test", "GIT_COMMITTER_EMAIL=gitp-test@example.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-q", "-b", "master")
	run("config", "user.name", "gitp-test")
	run("config", "user.email", "gitp-test@example.com")
}

func TestDriverRunCaptured(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)

	d := NewDriver("git", false)
	out, err := d.Run(dir, "status", "--porcelain")
	if err != nil {
		t.Fatalf("Run(status): %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Errorf("expected clean empty repo, got status output %q", out)
	}
}

func TestDriverRunReturnsVcsErrorOnFailure(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)

	d := NewDriver("git", false)
	_, err := d.Run(dir, "rev-parse", "refs/does/not/exist")
	if err == nil {
		t.Fatal("expected error resolving a nonexistent ref")
	}
	ve, ok := err.(*VcsError)
	if !ok {
		t.Fatalf("expected *VcsError, got %T: %v", err, err)
	}
	if ve.ExitCode == 0 {
		t.Errorf("expected nonzero exit code, got %d", ve.ExitCode)
	}
	if ve.Dir != dir {
		t.Errorf("VcsError.Dir = %q, want %q", ve.Dir, dir)
	}
}

func TestDriverRunOnEmptyRepoLogFails(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)

	d := NewDriver("git", false)
	if _, err := d.Run(dir, "log", "--oneline"); err == nil {
		t.Fatal("expected error: no commits yet, log on an empty repo should fail")
	}
}

func TestDriverRunCtxCapturesCommittedLog(t *testing.T) {
	dir := t.TempDir()
	initGitRepo(t, dir)
	if err := os.WriteFile(dir+"/README.md", []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("writing fixture file: %v", err)
	}

	d := NewDriver("git", false)
	if _, err := d.Run(dir, "add", "README.md"); err != nil {
		t.Fatalf("git add: %v", err)
	}
	if _, err := d.Run(dir, "commit", "-q", "-m", "initial"); err != nil {
		t.Fatalf("git commit: %v", err)
	}

	out, err := d.RunCtx(context.Background(), dir, "log", "--oneline")
	if err != nil {
		t.Fatalf("RunCtx(log): %v", err)
	}
	if !strings.Contains(out, "initial") {
		t.Errorf("expected log output to mention the commit message, got %q", out)
	}
}
