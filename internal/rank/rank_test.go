package rank

import (
	"sort"
	"testing"
)

func TestBetween_PrefixAdjacent_NoSpace(t *testing.T) {
	// "y" < "y0" but nothing sorts strictly between them: '0' is the minimal
	// digit and end-of-string sorts before any digit.
	if _, err := Between("y", "y0"); err != ErrNoSpace {
		t.Fatalf("expected ErrNoSpace, got %v", err)
	}
}

func TestBetween_StrictlyInside(t *testing.T) {
	cases := [][2]string{
		{"", ""},
		{"a", ""},
		{"", "a"},
		{"a", "b"},
		{"a5", "a6"},
		{"h", "h01"},
		{"", "1"},
		{"m", "t"},
	}
	for _, c := range cases {
		r, err := Between(c[0], c[1])
		if err != nil {
			t.Fatalf("Between(%q,%q) unexpected err: %v", c[0], c[1], err)
		}
		if c[0] != "" && !(c[0] < r) {
			t.Fatalf("Between(%q,%q)=%q not above lower bound", c[0], c[1], r)
		}
		if c[1] != "" && !(r < c[1]) {
			t.Fatalf("Between(%q,%q)=%q not below upper bound", c[0], c[1], r)
		}
	}
}

func TestBetween_RejectsInvertedBounds(t *testing.T) {
	if _, err := Between("b", "a"); err != ErrBadBounds {
		t.Fatalf("expected ErrBadBounds, got %v", err)
	}
}

func TestAfter_RepeatedStaysIncreasing(t *testing.T) {
	prev := Initial()
	for i := 0; i < 200; i++ {
		next, err := After(prev)
		if err != nil {
			t.Fatalf("After(%q) unexpected err: %v", prev, err)
		}
		if !(prev < next) {
			t.Fatalf("After(%q)=%q is not greater", prev, next)
		}
		prev = next
	}
}

func TestSpread_IncreasingEqualWidth(t *testing.T) {
	for _, n := range []int{1, 2, 35, 36, 500} {
		keys := Spread(n)
		if len(keys) != n {
			t.Fatalf("Spread(%d) returned %d keys", n, len(keys))
		}
		if !sort.StringsAreSorted(keys) {
			t.Fatalf("Spread(%d) not sorted", n)
		}
		for i := 1; i < n; i++ {
			if keys[i-1] == keys[i] {
				t.Fatalf("Spread(%d) duplicate key %q", n, keys[i])
			}
			if len(keys[i]) != len(keys[0]) {
				t.Fatalf("Spread(%d) mixed widths %q vs %q", n, keys[0], keys[i])
			}
		}
	}
}
