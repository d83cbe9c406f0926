package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// MigrationType represents the type of database that migrations apply to
type MigrationType string

const MigrationTypeMain MigrationType = "main"

// MigrationFile represents a migration file with its metadata
type MigrationFile struct {
	FileName    string
	Version     int
	Type        MigrationType
	Description string
	FilePath    string
}

const query_ensureMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL UNIQUE,
	db_type TEXT NOT NULL DEFAULT '',
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

const query_getAppliedMigrations = `SELECT filename FROM schema_migrations WHERE db_type = ? OR db_type = ''`
const query_migrationsTableExists = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`
const query_recordMigration = `INSERT INTO schema_migrations (filename, db_type) VALUES (?, ?)`

// Migrate applies all pending embedded migrations to the main database
func (db *Database) Migrate() error {
	ctx := context.Background()
	return db.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := retryableExec(ctx, conn, query_ensureMigrationsTable); err != nil {
			return fmt.Errorf("failed to create schema_migrations table: %w", err)
		}

		migrations, err := getEmbeddedMigrationFiles()
		if err != nil {
			return err
		}

		applied, err := getAppliedMigrations(ctx, conn, string(MigrationTypeMain))
		if err != nil {
			return err
		}

		for _, migration := range migrations {
			if migration.Type != MigrationTypeMain || applied[migration.FileName] {
				continue
			}
			if err := applyMigration(ctx, conn, migration); err != nil {
				log.Printf("[DB]: Failed to apply migration %s to main database: %v", migration.FileName, err)
				return err
			}
			log.Printf("[DB]: Applied migration %s", migration.FileName)
		}
		return nil
	})
}

// PendingMigrations returns the file names of embedded migrations not yet applied, without changing the database
func (db *Database) PendingMigrations() ([]string, error) {
	ctx := context.Background()
	var pending []string
	err := db.withConn(ctx, func(conn *sql.Conn) error {
		migrations, err := getEmbeddedMigrationFiles()
		if err != nil {
			return err
		}

		var tables int
		if err := retryableQueryRowScan(ctx, conn, query_migrationsTableExists, nil, &tables); err != nil {
			return fmt.Errorf("failed to look up schema_migrations: %w", err)
		}
		applied := map[string]bool{}
		if tables > 0 {
			if applied, err = getAppliedMigrations(ctx, conn, string(MigrationTypeMain)); err != nil {
				return err
			}
		}

		for _, migration := range migrations {
			if migration.Type == MigrationTypeMain && !applied[migration.FileName] {
				pending = append(pending, migration.FileName)
			}
		}
		return nil
	})
	return pending, err
}

// checkSchema fails with ErrSchemaNotProvisioned while migrations are pending
func (db *Database) checkSchema() error {
	pending, err := db.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %d pending migrations (%s)", ErrSchemaNotProvisioned, len(pending), strings.Join(pending, ", "))
	}
	return nil
}

// getAppliedMigrations returns a map of applied migration filenames
func getAppliedMigrations(ctx context.Context, conn *sql.Conn, dbType string) (map[string]bool, error) {
	rows, err := retryableQuery(ctx, conn, query_getAppliedMigrations, dbType)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations for %s: %w", dbType, err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var fname string
		if err := rows.Scan(&fname); err != nil {
			return nil, fmt.Errorf("failed to scan migration filename for %s: %w", dbType, err)
		}
		applied[fname] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows for %s: %w", dbType, err)
	}
	return applied, nil
}

// applyMigration runs one migration and records it in a single transaction
func applyMigration(ctx context.Context, conn *sql.Conn, migration *MigrationFile) error {
	content, err := readEmbeddedMigrationContent(migration)
	if err != nil {
		return err
	}

	return retryableTransaction(ctx, conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, content); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.FileName, err)
		}
		if _, err := tx.ExecContext(ctx, query_recordMigration, migration.FileName, string(migration.Type)); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.FileName, err)
		}
		return nil
	})
}
