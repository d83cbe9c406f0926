// Package database provides the SQLite post store for go-stockblog
package database

import (
	"database/sql"
	"errors"
)

var (
	// ErrTitleRequired is returned when a post is written with an empty title
	ErrTitleRequired = errors.New("title is required")

	// ErrPostNotFound is returned when no post has the requested id
	ErrPostNotFound = errors.New("post not found")

	// ErrSchemaNotProvisioned is returned by OpenDatabase with SkipMigrate when migrations are pending
	ErrSchemaNotProvisioned = errors.New("database schema not provisioned, run init-db")
)

// GetMainDB returns the main database connection for direct access
// This should only be used by specialized tools like init-db
func (db *Database) GetMainDB() *sql.DB {
	return db.mainDB
}
