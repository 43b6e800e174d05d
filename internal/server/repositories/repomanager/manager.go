package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/usermanager/internal/dbx"
	"github.com/dmitrijs2005/usermanager/internal/server/repositories/confirmationtokens"
	"github.com/dmitrijs2005/usermanager/internal/server/repositories/roles"
	"github.com/dmitrijs2005/usermanager/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Roles(db dbx.DBTX) roles.Repository
	ConfirmationTokens(db dbx.DBTX) confirmationtokens.Repository
}
