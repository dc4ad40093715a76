package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// UpsertMetaQuery returns an insert-or-replace statement for a key/value
	// meta table with columns (ownerColumn, meta_key, meta_value)
	UpsertMetaQuery(table, ownerColumn string) string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// upsertOnConflict is shared by SQLite and PostgreSQL, which both accept
// ON CONFLICT ... DO UPDATE with the excluded pseudo-table
func upsertOnConflict(table, ownerColumn string) string {
	return "INSERT INTO " + table + " (" + ownerColumn + ", meta_key, meta_value) VALUES (?, ?, ?) " +
		"ON CONFLICT (" + ownerColumn + ", meta_key) DO UPDATE SET meta_value = excluded.meta_value"
}
