// Package tag manages categorized tags and their song links.
//
// A tag's identity is the pair (category, name), both compared
// case-insensitively; the display casing of whichever writer created the
// row is preserved. Tags are referenced textually as "Category:Name",
// split on the first colon only, so names may themselves contain colons.
package tag
