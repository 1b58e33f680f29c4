// Command cadenza is the CLI for the cadenza music library: contributor
// identity management, album and publisher linking, tagging, song field
// synchronization, and audit inspection over a local SQLite library.
package main
