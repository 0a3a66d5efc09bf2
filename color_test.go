package gitp

import "testing"

func TestStatusSymbol(t *testing.T) {
	cases := map[RepoState]string{
		StateClean:       "✓",
		StateModified:    "*",
		StateUnaligned:   "!",
		StateNonexistent: "-",
		StateUnlinked:    "#",
		StateOverlayed:   "^",
	}
	for state, want := range cases {
		if got := StatusSymbol(state); got != want {
			t.Errorf("StatusSymbol(%s) = %q, want %q", state, got, want)
		}
	}
}

func TestStatusSymbolUnknown(t *testing.T) {
	if got := StatusSymbol(RepoState(99)); got != "?" {
		t.Errorf("StatusSymbol(unknown) = %q, want %q", got, "?")
	}
}

func TestPaintDisabledReturnsPlain(t *testing.T) {
	s := "✓ clean"
	if got := Paint(s, StyleGreen, false); got != s {
		t.Errorf("Paint with enabled=false should return input unchanged, got %q", got)
	}
}

func TestPaintNoneStyleReturnsPlain(t *testing.T) {
	s := "plain"
	if got := Paint(s, StyleNone, true); got != s {
		t.Errorf("Paint with StyleNone should return input unchanged, got %q", got)
	}
}

func TestPaintEnabledWraps(t *testing.T) {
	s := "clean"
	got := Paint(s, StyleGreen, true)
	if got == s {
		t.Error("expected Paint to decorate the string when enabled")
	}
}

func TestShouldColorizeForcedPolicies(t *testing.T) {
	if !ShouldColorize(ColorAlways, nil) {
		t.Error("ColorAlways should colorize regardless of stream")
	}
	if ShouldColorize(ColorNever, nil) {
		t.Error("ColorNever should never colorize")
	}
}
