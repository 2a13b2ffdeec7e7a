package repomanager

import (
	"context"
	"database/sql"

	"github.com/apetrenko/filevault/internal/dbx"
	"github.com/apetrenko/filevault/internal/server/repositories/files"
	"github.com/apetrenko/filevault/internal/server/repositories/grants"
	"github.com/apetrenko/filevault/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
	Grants(db dbx.DBTX) grants.Repository
}
