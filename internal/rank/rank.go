package rank

import (
	"errors"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	ErrNoSpace     = errors.New("no space between ranks")
	ErrBadBounds   = errors.New("rank bounds out of order")
	ErrInvalidRank = errors.New("invalid rank character")
)

func digit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return 10 + int(c-'a'), true
	default:
		return 0, false
	}
}

func char(d int) byte {
	if d < 0 {
		d = 0
	}
	if d > 35 {
		d = 35
	}
	return alphabet[d]
}

// Normalize lowercases and trims a rank key.
func Normalize(r string) string {
	return strings.ToLower(strings.TrimSpace(r))
}

// Compare orders two rank keys lexicographically. Empty ranks sort first.
func Compare(a, b string) int {
	a, b = Normalize(a), Normalize(b)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Between returns a key strictly between lo and hi. Either bound may be empty,
// meaning unbounded on that side.
func Between(lo, hi string) (string, error) {
	lo, hi = Normalize(lo), Normalize(hi)
	if lo != "" && hi != "" && lo >= hi {
		return "", ErrBadBounds
	}

	inside := func(r string) bool {
		if r == "" {
			return false
		}
		if lo != "" && r <= lo {
			return false
		}
		if hi != "" && r >= hi {
			return false
		}
		return true
	}

	prefix := make([]byte, 0, 8)
	for i := 0; i < 256; i++ {
		dl, dh := 0, 35
		if i < len(lo) {
			v, ok := digit(lo[i])
			if !ok {
				return "", ErrInvalidRank
			}
			dl = v
		}
		if i < len(hi) {
			v, ok := digit(hi[i])
			if !ok {
				return "", ErrInvalidRank
			}
			dh = v
		}

		// With hi exhausted, an adjacent pair (e.g. 'y' vs the implicit 'z')
		// still leaves room further right.
		if dl == dh || (dh-dl == 1 && i >= len(hi)) {
			prefix = append(prefix, char(dl))
			continue
		}
		if dh-dl > 1 {
			prefix = append(prefix, char(dl+(dh-dl)/2))
			r := string(prefix)
			if !inside(r) {
				// hi extends lo by trailing zeros ("y" < "y0"): nothing fits.
				return "", ErrNoSpace
			}
			return r, nil
		}

		// Adjacent digits: any extension of lo stays below hi. Extend with a
		// midpoint digit rather than '0' so the result never ends in the minimum.
		r := lo + "h"
		if i >= len(lo) {
			r = string(prefix) + string(char(dl)) + "h"
		}
		if !inside(r) {
			return "", ErrNoSpace
		}
		return r, nil
	}
	return "", ErrNoSpace
}

func After(lo string) (string, error)  { return Between(lo, "") }
func Before(hi string) (string, error) { return Between("", hi) }
func Initial() string {
	r, _ := Between("", "")
	return r
}

// Spread returns n strictly increasing keys of equal width, evenly spaced
// across the key space. Equal width means no key is a prefix of another, so
// later inserts always find room.
func Spread(n int) []string {
	if n <= 0 {
		return nil
	}
	width := 1
	space := 36
	for space <= n+1 {
		width++
		space *= 36
	}
	out := make([]string, n)
	buf := make([]byte, width)
	for i := 0; i < n; i++ {
		v := (i + 1) * space / (n + 1)
		for p := width - 1; p >= 0; p-- {
			buf[p] = alphabet[v%36]
			v /= 36
		}
		out[i] = string(buf)
	}
	return out
}
