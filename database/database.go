package database

// Database is a service that manages the SQL connection for the calendar
// store and owns schema bootstrap and migration.

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db *sqlx.DB
}

// Connect creates a new database connection. Initialize must be called
// once before any store operation.
func Connect(driverName string, dataSourceName string) (*Database, error) {
	db, err := sqlx.Connect(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (db *Database) GetDB() *sqlx.DB {
	return db.db
}

func (db *Database) Close() error {
	return db.db.Close()
}
