// Package storage bootstraps the client's local sqlite database: it opens
// the file, applies the embedded goose migrations, and wires the repository
// set the engine works against.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/mihailsb/docsync/internal/client/migrations"
	"github.com/mihailsb/docsync/internal/client/repositories/documents"
	"github.com/mihailsb/docsync/internal/client/repositories/files"
	"github.com/mihailsb/docsync/internal/client/repositories/metadata"
	"github.com/mihailsb/docsync/internal/client/repositories/tombstones"
)

// Repositories is the wired local repository set.
type Repositories struct {
	Documents  documents.Repository
	Files      files.Repository
	Tombstones tombstones.Repository
	Metadata   metadata.Repository
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the sqlite database at dsn,
// migrates it, and returns the repository set plus the handle for lifecycle
// management.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, *sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	repos := &Repositories{
		Documents:  documents.NewSQLiteRepository(db),
		Files:      files.NewSQLiteRepository(db),
		Tombstones: tombstones.NewSQLiteRepository(db),
		Metadata:   metadata.NewSQLiteRepository(db),
	}
	return repos, db, nil
}
