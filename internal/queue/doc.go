// Package queue persists pipeline runs and their dataset records in SQLite.
//
// The Store manages database connections, schema initialization, and the
// status transitions datasets move through while a run executes. Each run row
// captures one invocation of the half-tomogram or denoising pipeline; item
// rows capture per-dataset progress and failure detail so the CLI can report
// on past runs without re-reading the filesystem.
//
// The database is a processing ledger rather than a long-term archive. Schema
// changes bump the version in schema.go; users delete the database file to
// adopt the new schema.
package queue
