// Package utils holds small helpers shared by the HTTP and service layers:
// query-parameter parsing and topic slug generation.
package utils

import "strconv"

// BoundedInt parses s as a decimal int and clamps it to [lo, hi]. Blank or
// malformed input yields def, which is clamped too. A hi below lo leaves the
// value unbounded above.
//
//	BoundedInt("", 20, 1, 100)    // 20
//	BoundedInt("500", 20, 1, 100) // 100
//	BoundedInt("-3", 20, 1, 100)  // 1
func BoundedInt(s string, def, lo, hi int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		n = def
	}
	switch {
	case n < lo:
		return lo
	case hi >= lo && n > hi:
		return hi
	}
	return n
}
