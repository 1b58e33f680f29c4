// Package songsync applies an edit buffer to a song's link tables.
//
// The buffer is a full snapshot of the song's denormalized fields: credit
// name lists per role, tag references, album references, and publisher
// references. Sync diffs each field family against the database and issues
// only the link/unlink mutations needed to make the stored state an exact
// mirror, inside the caller's unit of work so a failed resolution rolls the
// whole edit back.
package songsync
