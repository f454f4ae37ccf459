package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect abstracts the differences between the supported SQL backends.
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(cfg DialectConfig) string

	// Rewrite converts ? placeholders if the backend needs a different
	// syntax (e.g. $1 for postgres)
	Rewrite(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// Configure applies backend-specific connection settings
	Configure(db *sql.DB) error

	// MigrationsTable returns the SQL creating the migrations tracking table
	MigrationsTable() string
}

// DialectConfig holds connection parameters for a dialect
type DialectConfig struct {
	// Path is used by SQLite
	Path string

	// URL is used by PostgreSQL and MySQL
	URL string
}

var placeholderPattern = regexp.MustCompile(`\?`)

// numberPlaceholders converts ? placeholders to $1, $2, ...
func numberPlaceholders(query string) string {
	n := 0
	return placeholderPattern.ReplaceAllStringFunc(query, func(string) string {
		n++
		return "$" + strconv.Itoa(n)
	})
}
