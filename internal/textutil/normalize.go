package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var folder = cases.Fold()

// Fold returns the canonical case-insensitive comparison form of a name.
func Fold(value string) string {
	return folder.String(Display(value))
}

// Display trims surrounding whitespace and collapses internal runs to a
// single space without changing letter case.
func Display(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// EqualFold reports whether two names are equal under Fold.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

var sortArticles = []string{"the ", "a ", "an "}

// SortName derives a sort key from a display name by moving a leading
// English article to the end ("The Beatles" -> "Beatles, The").
func SortName(name string) string {
	display := Display(name)
	lowered := strings.ToLower(display)
	for _, article := range sortArticles {
		if strings.HasPrefix(lowered, article) && len(display) > len(article) {
			rest := display[len(article):]
			return Display(rest) + ", " + strings.TrimSpace(display[:len(article)])
		}
	}
	return display
}

var titleCaser = cases.Title(language.English)

// TitleCase renders a name in English title case for display contexts that
// need a canonical presentation (e.g. tag categories).
func TitleCase(value string) string {
	return titleCaser.String(Display(value))
}
