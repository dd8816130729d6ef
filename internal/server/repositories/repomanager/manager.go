// Package repomanager groups repository constructors behind a single
// interface so services can run several repositories inside one transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/mihailsb/docsync/internal/dbx"
	"github.com/mihailsb/docsync/internal/server/repositories/documents"
	"github.com/mihailsb/docsync/internal/server/repositories/refreshtokens"
	"github.com/mihailsb/docsync/internal/server/repositories/tombstones"
	"github.com/mihailsb/docsync/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Documents(db dbx.DBTX) documents.Repository
	Tombstones(db dbx.DBTX) tombstones.Repository
}
