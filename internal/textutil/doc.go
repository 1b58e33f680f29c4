// Package textutil provides the text normalization rules shared by the
// identity, album, publisher, and tag repositories.
//
// Names are compared case-insensitively throughout the engine. Fold produces
// the canonical comparison form (Unicode case folding with collapsed
// whitespace); Display trims and collapses whitespace without changing case;
// SortName derives a leading-article-free sort key for contributor names.
package textutil
