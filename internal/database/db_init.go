package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

// Database wraps the SQLite file holding the posts table.
// Every store operation borrows one connection via withConn and returns it
// before the call completes.
type Database struct {
	mainDB   *sql.DB
	dbconfig *DBConfig
	dbPath   string
}

// DBConfig represents database configuration
type DBConfig struct {
	// Directory to store database files
	DataDir string
	// File name of the main database inside DataDir
	File string

	// Connection settings. MaxIdleConns = 0 closes the connection after
	// every operation, matching the open-per-request deployment.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Performance settings
	WALMode     bool   // Write-Ahead Logging
	SyncMode    string // OFF, NORMAL, FULL
	BusyTimeout time.Duration

	// SkipMigrate opens an already provisioned database without touching
	// its schema. Pending migrations make OpenDatabase fail.
	SkipMigrate bool
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() (dbconfig *DBConfig) {
	return &DBConfig{
		DataDir:         "./data",
		File:            "database.db",
		MaxOpenConns:    4,
		MaxIdleConns:    0,
		ConnMaxLifetime: 0,
		WALMode:         true,
		SyncMode:        "NORMAL",
		BusyTimeout:     30 * time.Second,
	}
}

// OpenDatabase opens (and creates if needed) the database and applies all
// pending migrations, or only verifies them with SkipMigrate. A nil config uses DefaultDBConfig.
func OpenDatabase(dbconfig *DBConfig) (*Database, error) {
	if dbconfig == nil {
		dbconfig = DefaultDBConfig()
	}
	db := &Database{
		dbconfig: dbconfig,
		dbPath:   filepath.Join(dbconfig.DataDir, dbconfig.File),
	}

	if err := db.initMainDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize main database: %w", err)
	}

	if dbconfig.SkipMigrate {
		if err := db.checkSchema(); err != nil {
			if cerr := db.mainDB.Close(); cerr != nil {
				log.Printf("[DB]: Failed to close mainDB after schema check: %v", cerr)
			}
			return nil, err
		}
	} else if err := db.Migrate(); err != nil {
		if cerr := db.mainDB.Close(); cerr != nil {
			log.Printf("[DB]: Failed to close mainDB after migration error: %v", cerr)
		}
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	log.Printf("[DB]: Database initialized at %s (wal=%t sync=%s)", db.dbPath, dbconfig.WALMode, dbconfig.SyncMode)
	return db, nil
}

// Path returns the path of the SQLite file
func (db *Database) Path() string {
	return db.dbPath
}

// Close closes the connection pool
func (db *Database) Close() error {
	if db == nil || db.mainDB == nil {
		return nil
	}
	if err := db.mainDB.Close(); err != nil {
		return fmt.Errorf("failed to close main database: %w", err)
	}
	return nil
}

// initMainDB initializes the main database connection
func (db *Database) initMainDB() error {
	log.Printf("[DB]: Initializing main database at: %s", db.dbPath)

	if err := createDirIfNotExists(db.dbconfig.DataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	mainDB, err := sql.Open("sqlite3", db.dsn())
	if err != nil {
		return fmt.Errorf("failed to open main database: %w", err)
	}

	mainDB.SetMaxOpenConns(db.dbconfig.MaxOpenConns)
	mainDB.SetMaxIdleConns(db.dbconfig.MaxIdleConns)
	mainDB.SetConnMaxLifetime(db.dbconfig.ConnMaxLifetime)

	if err := mainDB.Ping(); err != nil {
		if cerr := mainDB.Close(); cerr != nil {
			return fmt.Errorf("failed to ping main database: %w; also failed to close mainDB: %v", err, cerr)
		}
		return fmt.Errorf("failed to ping main database: %w", err)
	}

	db.mainDB = mainDB
	return nil
}

// dsn builds the sqlite3 data source name. Pragmas go into the DSN because
// connections are not kept idle: each new connection must get them again.
func (db *Database) dsn() string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", fmt.Sprintf("%d", db.dbconfig.BusyTimeout.Milliseconds()))
	if db.dbconfig.SyncMode != "" {
		params.Set("_synchronous", db.dbconfig.SyncMode)
	}
	if db.dbconfig.WALMode {
		params.Set("_journal_mode", "WAL")
	}
	return "file:" + db.dbPath + "?" + params.Encode()
}

// withConn acquires a single connection for one logical operation and
// releases it on every exit path.
func (db *Database) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := db.mainDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire database connection: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Printf("[DB]: Failed to release connection: %v", cerr)
		}
	}()
	return fn(conn)
}
