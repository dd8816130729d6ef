package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mihailsb/docsync/internal/dbx"
	"github.com/mihailsb/docsync/internal/server/migrations"
	"github.com/mihailsb/docsync/internal/server/repositories/documents"
	"github.com/mihailsb/docsync/internal/server/repositories/refreshtokens"
	"github.com/mihailsb/docsync/internal/server/repositories/tombstones"
	"github.com/mihailsb/docsync/internal/server/repositories/users"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Documents(db dbx.DBTX) documents.Repository {
	return documents.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Tombstones(db dbx.DBTX) tombstones.Repository {
	return tombstones.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return err
	}

	return nil
}
