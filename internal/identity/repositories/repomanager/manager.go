package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gatekeeper/internal/dbx"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/repositories/genders"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/repositories/roles"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Roles(db dbx.DBTX) roles.Repository
	Genders(db dbx.DBTX) genders.Repository
}
