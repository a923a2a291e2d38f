// Package project provides the SQLite-backed project and parameter store.
//
// A project records where the result files of each analysed sample and each
// alignment result live, the parent → master links of their drift stores,
// the last focused record of every scope, and free-form viewer parameters.
// The result data itself stays in the binary data files.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - 5-second busy timeout
//   - Foreign key enforcement
//   - Schema embedded from schema.sql, migrations keyed on user_version
//
// Open(":memory:") gives a private in-memory project, used by tests and by
// one-off CLI invocations without --project.
package project
