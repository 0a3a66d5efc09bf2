package gitp

import (
	"errors"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", NewUsageError("missing %s", "target"), 2},
		{"precondition", NewPreconditionError("tree is dirty", "commit or stash first"), 3},
		{"vcs", &VcsError{Op: "git", Cause: errors.New("boom")}, 4},
		{"parse", NewParseError("/x/.gitp_manifest", "bad yaml", nil), 5},
		{"lock", NewLockError("disconnected", nil), 6},
		{"fs", NewFsError("write", "/x", errors.New("denied")), 7},
		{"unknown", errors.New("plain"), 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ExitCode(c.err); got != c.want {
				t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
			}
		})
	}
}

func TestExitCodeSeesThroughWrap(t *testing.T) {
	err := Wrap(NewPreconditionError("dirty", ""), "sync failed")
	if got := ExitCode(err); got != 3 {
		t.Errorf("ExitCode(wrapped precondition) = %d, want 3", got)
	}
}

func TestPreconditionErrorMessage(t *testing.T) {
	e := NewPreconditionError("tree is dirty", "commit or stash first")
	want := "tree is dirty (commit or stash first)"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := NewPreconditionError("tree is dirty", "")
	if got := bare.Error(); got != "tree is dirty" {
		t.Errorf("Error() = %q, want %q", got, "tree is dirty")
	}
}

func TestVcsErrorUnwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	e := &VcsError{Op: "git", Dir: "/repo", Cause: cause}
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to see through VcsError.Unwrap")
	}
}

func TestVcsErrorTruncatesLongOutput(t *testing.T) {
	bigOutput := make([]byte, 4096)
	for i := range bigOutput {
		bigOutput[i] = 'x'
	}
	e := &VcsError{Op: "git", Dir: "/repo", Output: string(bigOutput), Cause: errors.New("fail")}
	msg := e.Error()
	if len(msg) > 2200 {
		t.Errorf("expected truncated error message, got length %d", len(msg))
	}
}
