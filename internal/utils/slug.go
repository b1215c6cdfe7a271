package utils

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugRunes caps generated slugs, leaving room for a "-NN" suffix in the
// 191-char indexed column.
const maxSlugRunes = 80

// Slugify derives a URL-safe slug from a title: accents are folded to their
// base letter, letters are lower-cased, and every run of other characters
// becomes a single '-'. Titles with nothing usable yield "topic".
//
//	Slugify("Welcome thread!")   // "welcome-thread"
//	Slugify("Crème brûlée tips") // "creme-brulee-tips"
func Slugify(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	out := make([]rune, 0, len(folded))
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || (unicode.IsLetter(r) && r > unicode.MaxASCII) {
			if dash && len(out) > 0 {
				out = append(out, '-')
			}
			out = append(out, r)
			dash = false
			continue
		}
		dash = true
	}
	if len(out) > maxSlugRunes {
		out = out[:maxSlugRunes]
	}
	slug := strings.TrimRight(string(out), "-")
	if slug == "" {
		return "topic"
	}
	return slug
}

// SlugCandidate returns the n-th candidate for base: base itself for n <= 1,
// otherwise "base-n".
func SlugCandidate(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// reservedSlugs are static segments of the forum's routes; a messageboard or
// topic with one of these slugs would be shadowed by the route.
var reservedSlugs = map[string]struct{}{
	"topics":  {},
	"search":  {},
	"preview": {},
}

// IsReservedSlug reports whether slug collides with a static route segment.
func IsReservedSlug(slug string) bool {
	_, ok := reservedSlugs[strings.ToLower(slug)]
	return ok
}
