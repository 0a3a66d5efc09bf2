package gitp

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsEmptyDirOrNotExist(t *testing.T) {
	dir := t.TempDir()

	empty, err := IsEmptyDirOrNotExist(filepath.Join(dir, "missing"))
	if err != nil || !empty {
		t.Errorf("missing dir: empty=%v err=%v, want true, nil", empty, err)
	}

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	empty, err = IsEmptyDirOrNotExist(sub)
	if err != nil || !empty {
		t.Errorf("empty dir: empty=%v err=%v, want true, nil", empty, err)
	}

	if err := os.WriteFile(filepath.Join(sub, "f"), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	empty, err = IsEmptyDirOrNotExist(sub)
	if err != nil || empty {
		t.Errorf("nonempty dir: empty=%v err=%v, want false, nil", empty, err)
	}
}

func TestIsRealDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	real, err := isRealDir(sub)
	if err != nil || !real {
		t.Errorf("real dir: real=%v err=%v, want true, nil", real, err)
	}

	link := filepath.Join(dir, "link")
	if err := os.Symlink(sub, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	real, err = isRealDir(link)
	if err != nil || real {
		t.Errorf("symlinked dir: real=%v err=%v, want false, nil", real, err)
	}

	real, err = isRealDir(filepath.Join(dir, "nope"))
	if err != nil || real {
		t.Errorf("missing path: real=%v err=%v, want false, nil", real, err)
	}
}

func TestNewestSubdir(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "v1")
	newer := filepath.Join(dir, "v2")
	if err := os.Mkdir(older, 0o755); err != nil {
		t.Fatalf("mkdir v1: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := os.Mkdir(newer, 0o755); err != nil {
		t.Fatalf("mkdir v2: %v", err)
	}

	got, err := newestSubdir(dir, nil)
	if err != nil {
		t.Fatalf("newestSubdir: %v", err)
	}
	if got != "v2" {
		t.Errorf("newestSubdir() = %q, want %q", got, "v2")
	}
}

func TestNewestSubdirAppliesFilter(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "release-1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := os.Mkdir(filepath.Join(dir, "scratch"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	re, err := compileRegex(`^release-`)
	if err != nil {
		t.Fatalf("compileRegex: %v", err)
	}
	got, err := newestSubdir(dir, re)
	if err != nil {
		t.Fatalf("newestSubdir: %v", err)
	}
	if got != "release-1" {
		t.Errorf("newestSubdir() = %q, want %q (scratch is newer but filtered out)", got, "release-1")
	}
}

func TestResolveLinkPlain(t *testing.T) {
	root := t.TempDir()
	entry := &RepoEntry{Link: "../sibling"}
	got, err := resolveLink(filepath.Join(root, "parent"), entry, true)
	if err != nil {
		t.Fatalf("resolveLink: %v", err)
	}
	want := filepath.Clean(filepath.Join(root, "sibling"))
	if got != want {
		t.Errorf("resolveLink() = %q, want %q", got, want)
	}
}

func TestResolveLinkNewest(t *testing.T) {
	root := t.TempDir()
	container := filepath.Join(root, "builds")
	if err := os.MkdirAll(filepath.Join(container, "b1"), 0o755); err != nil {
		t.Fatalf("mkdir b1: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := os.MkdirAll(filepath.Join(container, "b2"), 0o755); err != nil {
		t.Fatalf("mkdir b2: %v", err)
	}

	entry := &RepoEntry{Link: "builds", LinkNewest: true}
	got, err := resolveLink(root, entry, true)
	if err != nil {
		t.Fatalf("resolveLink: %v", err)
	}
	want := filepath.Join(container, "b2")
	if got != want {
		t.Errorf("resolveLink() = %q, want %q", got, want)
	}
}

func TestResolveLinkNewestStrictErrorsWhenEmpty(t *testing.T) {
	root := t.TempDir()
	container := filepath.Join(root, "builds")
	if err := os.MkdirAll(container, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	entry := &RepoEntry{Link: "builds", LinkNewest: true}
	if _, err := resolveLink(root, entry, true); err == nil {
		t.Error("expected error when no subdirectory matches and strict=true")
	}
	got, err := resolveLink(root, entry, false)
	if err != nil {
		t.Fatalf("resolveLink non-strict: %v", err)
	}
	if got != "" {
		t.Errorf("resolveLink non-strict = %q, want empty string", got)
	}
}

func TestGitignoreAddRemoveIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	if err := gitignoreAdd(dir, "/kid"); err != nil {
		t.Fatalf("gitignoreAdd: %v", err)
	}
	if err := gitignoreAdd(dir, "/kid"); err != nil {
		t.Fatalf("gitignoreAdd (again): %v", err)
	}
	lines, err := readLines(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("readLines: %v", err)
	}
	if len(lines) != 1 || lines[0] != "/kid" {
		t.Errorf("lines = %v, want exactly one [/kid]", lines)
	}

	if err := gitignoreRemove(dir, "/kid"); err != nil {
		t.Fatalf("gitignoreRemove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".gitignore")); !os.IsNotExist(err) {
		t.Errorf("expected .gitignore to be removed once empty, stat err = %v", err)
	}
}

func TestCopyDirPreservesContentsAndSkipsSymlinks(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("writing a.txt: %v", err)
	}
	if err := os.Mkdir(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "nested", "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatalf("writing b.txt: %v", err)
	}
	if err := os.Symlink(filepath.Join(src, "a.txt"), filepath.Join(src, "link.txt")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "copy")
	if err := CopyDir(src, dst); err != nil {
		t.Fatalf("CopyDir: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dst, "nested", "b.txt"))
	if err != nil {
		t.Fatalf("reading copied nested file: %v", err)
	}
	if string(got) != "world" {
		t.Errorf("copied content = %q, want %q", got, "world")
	}
	if _, err := os.Lstat(filepath.Join(dst, "link.txt")); !os.IsNotExist(err) {
		t.Errorf("expected symlink to be skipped by CopyDir, stat err = %v", err)
	}
}
