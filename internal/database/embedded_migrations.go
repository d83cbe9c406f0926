package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
)

//go:embed migrations/*.sql
var EmbeddedMigrationsFS embed.FS

// Parsed once, the embedded set never changes at runtime
var (
	embeddedMigrationCache    []*MigrationFile
	embeddedMigrationCacheErr error
	embeddedMigrationOnce     sync.Once
)

// getEmbeddedMigrationFiles reads and parses all migration files from the embedded filesystem
func getEmbeddedMigrationFiles() ([]*MigrationFile, error) {
	embeddedMigrationOnce.Do(func() {
		embeddedMigrationCache, embeddedMigrationCacheErr = loadMigrationFiles(EmbeddedMigrationsFS, "migrations")
	})
	if embeddedMigrationCacheErr != nil {
		return nil, embeddedMigrationCacheErr
	}
	out := make([]*MigrationFile, len(embeddedMigrationCache))
	copy(out, embeddedMigrationCache)
	return out, nil
}

// loadMigrationFiles lists dir in fsys and returns the valid migrations sorted by version
func loadMigrationFiles(fsys fs.FS, dir string) ([]*MigrationFile, error) {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []*MigrationFile
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}
		migration, err := parseMigrationFileName(f.Name())
		if err != nil {
			log.Printf("[DB]: Warning: skipping invalid migration file %s: %v", f.Name(), err)
			continue
		}
		migration.FilePath = path.Join(dir, f.Name())
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// parseMigrationFileName parses a migration file name like 0001_main_posts.sql
func parseMigrationFileName(fileName string) (*MigrationFile, error) {
	if !strings.HasSuffix(fileName, ".sql") {
		return nil, fmt.Errorf("migration file must have .sql extension: %s", fileName)
	}
	parts := strings.SplitN(strings.TrimSuffix(fileName, ".sql"), "_", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid migration file name format: %s (expected format: 0001_type_description.sql)", fileName)
	}

	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid version number in migration file: %s", fileName)
	}

	migrationType := MigrationType(parts[1])
	if migrationType != MigrationTypeMain {
		return nil, fmt.Errorf("unknown migration type in filename %s: %s", fileName, parts[1])
	}

	return &MigrationFile{
		FileName:    fileName,
		Version:     version,
		Type:        migrationType,
		Description: parts[2],
	}, nil
}

// readEmbeddedMigrationContent reads the content of an embedded migration file
func readEmbeddedMigrationContent(migration *MigrationFile) (string, error) {
	content, err := fs.ReadFile(EmbeddedMigrationsFS, migration.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded migration file %s: %w", migration.FilePath, err)
	}
	return string(content), nil
}
