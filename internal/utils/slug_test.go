package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Welcome thread!":          "welcome-thread",
		"  Leading and trailing  ": "leading-and-trailing",
		"Crème brûlée tips":        "creme-brulee-tips",
		"C++ & Go -- compared":     "c-go-compared",
		"2024 roadmap":             "2024-roadmap",
		"Über_alles":               "uber-alles",
		"!!!":                      "topic",
		"":                         "topic",
		"Привет мир":               "привет-мир",
		"multiple---dashes___here": "multiple-dashes-here",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestSlugify_Capped(t *testing.T) {
	got := Slugify(strings.Repeat("abc ", 100))
	if n := utf8.RuneCountInString(got); n > maxSlugRunes {
		t.Fatalf("slug too long: %d runes", n)
	}
	if strings.HasSuffix(got, "-") {
		t.Fatalf("slug must not end with a dash: %q", got)
	}
}

func TestSlugCandidate(t *testing.T) {
	if SlugCandidate("a", 0) != "a" || SlugCandidate("a", 1) != "a" {
		t.Fatalf("first candidate must be the base")
	}
	if SlugCandidate("a", 3) != "a-3" {
		t.Fatalf("got %q", SlugCandidate("a", 3))
	}
}

func TestIsReservedSlug(t *testing.T) {
	for _, s := range []string{"topics", "Search", "preview"} {
		if !IsReservedSlug(s) {
			t.Fatalf("%q should be reserved", s)
		}
	}
	for _, s := range []string{"topics-2", "general", ""} {
		if IsReservedSlug(s) {
			t.Fatalf("%q should not be reserved", s)
		}
	}
}
