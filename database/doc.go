package database

// Package database provides a connection to the SQLite calendar store and
// manages the shared database schema: creating the events and tags tables on
// first run and migrating the legacy date/time events schema to the
// start/end-datetime schema. Operations over the schema are delegated to the
// state package, which is handed the underlying connection at startup.
