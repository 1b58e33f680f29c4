// Package album manages album rows and their song and publisher links.
//
// Albums are disambiguated by the composite key (title, album artist,
// release year): the title compares case-insensitively while artist and
// year compare exactly, with absent values forming their own bucket. Two
// albums sharing a title but differing in artist or year are distinct
// rows; repeating the full key always resolves to the same row.
package album
