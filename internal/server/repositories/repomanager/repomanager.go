package repomanager

import (
	"context"
	"database/sql"

	"github.com/openvault/openvault/internal/dbx"
	"github.com/openvault/openvault/internal/server/repositories/accesslogs"
	"github.com/openvault/openvault/internal/server/repositories/accounts"
	"github.com/openvault/openvault/internal/server/repositories/files"
	"github.com/openvault/openvault/internal/server/repositories/recoverycodes"
	"github.com/openvault/openvault/internal/server/repositories/sessions"
	"github.com/openvault/openvault/internal/server/repositories/sharelinks"
)

// RepositoryManager vends repository implementations bound to a DBTX, so
// services can run several repositories inside one transaction, and owns
// schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	RecoveryCodes(db dbx.DBTX) recoverycodes.Repository
	ShareLinks(db dbx.DBTX) sharelinks.Repository
	Files(db dbx.DBTX) files.Repository
	AccessLogs(db dbx.DBTX) accesslogs.Repository
}
