// Package library manages the SQLite database that backs the metadata engine.
//
// The Store owns the connection, file locking for the single-writer process
// model, schema migrations, and health diagnostics. Song rows live here too:
// they are the anchor every credit, album, publisher, and tag edge hangs off.
//
// Other repositories build on the DBTX and Auditor contracts defined in this
// package so that one transaction (and one audit batch) can span mutations
// across all of them. Schema changes are new files under migrations/; applied
// versions are recorded in schema_migrations.
package library
