// Package publisher manages the label hierarchy.
//
// Publishers form a forest: each row has at most one parent and any number
// of children. Names are unique case-insensitively across the whole table.
// Re-parenting is refused when it would close a cycle, so ancestor walks
// always terminate.
package publisher
