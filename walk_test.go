package gitp

import "testing"

func TestNewTargetFilterNil(t *testing.T) {
	if tf := newTargetFilter(""); tf != nil {
		t.Errorf("expected nil filter for empty target, got %+v", tf)
	}
}

func TestTargetFilterMatchesExactOnly(t *testing.T) {
	tf := newTargetFilter("sub")
	if !tf.matches("sub") {
		t.Error("expected exact match on sub")
	}
	if tf.matches("sub/child") {
		t.Error("bare target (no trailing slash) must not match descendants")
	}
	if tf.matches("other") {
		t.Error("unrelated path must not match")
	}
}

func TestTargetFilterMatchesWithDescendants(t *testing.T) {
	tf := newTargetFilter("sub/")
	if !tf.matches("sub") {
		t.Error("trailing-slash target should still match itself")
	}
	if !tf.matches("sub/child") {
		t.Error("trailing-slash target should match descendants")
	}
	if tf.matches("subother") {
		t.Error("must not match a sibling whose name merely shares a prefix")
	}
}

func TestTargetFilterMayContainMatch(t *testing.T) {
	tf := newTargetFilter("a/b/c")
	if !tf.mayContainMatch("") {
		t.Error("root must always be allowed to keep recursing")
	}
	if !tf.mayContainMatch("a") {
		t.Error("ancestor of the target must be allowed to keep recursing")
	}
	if !tf.mayContainMatch("a/b") {
		t.Error("closer ancestor of the target must be allowed to keep recursing")
	}
	if tf.mayContainMatch("z") {
		t.Error("unrelated sibling must not be allowed to keep recursing")
	}
}

func TestNilTargetFilterAlwaysMatches(t *testing.T) {
	var tf *targetFilter
	if !tf.matches("anything") {
		t.Error("nil filter must match everything")
	}
	if !tf.mayContainMatch("anything") {
		t.Error("nil filter must allow recursing everywhere")
	}
}
