package game

import (
	"slices"
	"testing"
)

func TestValidateTarget(t *testing.T) {
	options := []string{"Alice", "Bob", "Carol"}

	if target, reason := validateTarget("Bob", options, ""); target != "Bob" || reason != "" {
		t.Fatalf("valid target rejected: target=%q reason=%q", target, reason)
	}

	if _, reason := validateTarget("Mallory", options, ""); reason != FALLBACK_INVALID {
		t.Fatalf("out-of-option target should yield %q, got %q", FALLBACK_INVALID, reason)
	}

	// 上游已经失败时原因原样透传
	if _, reason := validateTarget("Bob", options, FALLBACK_TIMEOUT); reason != FALLBACK_TIMEOUT {
		t.Fatalf("upstream reason should pass through, got %q", reason)
	}
}

func TestRandomFallbackStaysInOptions(t *testing.T) {
	options := []string{"Alice", "Bob", "Carol"}

	for i := 0; i < 50; i++ {
		if got := randomFallback(options); !slices.Contains(options, got) {
			t.Fatalf("random fallback picked %q outside options", got)
		}
	}

	if got := randomFallback(nil); got != "" {
		t.Fatalf("empty options should yield empty target, got %q", got)
	}
}

func TestNextAliveFallbackIsDeterministic(t *testing.T) {
	alive := []string{"Alice", "Bob", "Carol", "Dave"}

	cases := []struct {
		voter string
		want  string
	}{
		{"Alice", "Bob"},
		{"Bob", "Carol"},
		{"Carol", "Dave"},
		// 列表末尾回绕到开头
		{"Dave", "Alice"},
		// 不在列表中的投票者从头开始找
		{"Mallory", "Alice"},
	}

	for _, c := range cases {
		for i := 0; i < 10; i++ {
			if got := nextAliveFallback(alive, c.voter); got != c.want {
				t.Fatalf("nextAliveFallback(%q) = %q, want %q", c.voter, got, c.want)
			}
		}
	}

	if got := nextAliveFallback(nil, "Alice"); got != "" {
		t.Fatalf("empty alive list should yield empty target, got %q", got)
	}
}
