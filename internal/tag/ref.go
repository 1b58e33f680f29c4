package tag

import (
	"fmt"
	"strings"

	"cadenza/internal/library"
	"cadenza/internal/textutil"
)

// Ref is the textual "Category:Name" form tags travel in through the edit
// buffer.
type Ref struct {
	Category string
	Name     string
}

// ParseRef splits a tag reference on the first colon only, so tag names may
// themselves contain colons ("mood:calm: before the storm" is the "calm:
// before the storm" tag in the "mood" category). Both halves must be
// non-empty after trimming.
func ParseRef(ref string) (Ref, error) {
	category, name, found := strings.Cut(ref, ":")
	if !found {
		return Ref{}, fmt.Errorf("%w: tag ref %q has no category separator", library.ErrValidation, ref)
	}
	parsed := Ref{
		Category: textutil.Display(category),
		Name:     textutil.Display(name),
	}
	if parsed.Category == "" || parsed.Name == "" {
		return Ref{}, fmt.Errorf("%w: tag ref %q needs both a category and a name", library.ErrValidation, ref)
	}
	return parsed, nil
}

func (r Ref) String() string {
	return r.Category + ":" + r.Name
}
