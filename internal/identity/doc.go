// Package identity maintains the contributor graph: primary names, aliases,
// and group memberships.
//
// A contributor is one person or group. Its primary name is unique among
// primary names of the same kind; aliases may freely collide with other
// contributors' names, which is exactly what Merge resolves. ResolveGraph
// answers "who else could this name refer to" with a one-hop expansion over
// aliases and memberships, and Merge retires one identity into another while
// keeping the absorbed name alive as an alias.
package identity
