package repomanager

import (
	"context"
	"database/sql"

	"github.com/willtrail/willtrail/internal/dbx"
	"github.com/willtrail/willtrail/internal/server/repositories/directives"
	"github.com/willtrail/willtrail/internal/server/repositories/documents"
	"github.com/willtrail/willtrail/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a *sql.DB or a *sql.Tx,
// so services can run the same repository code inside or outside a
// transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Directives(db dbx.DBTX) directives.Repository
	Documents(db dbx.DBTX) documents.Repository
}
