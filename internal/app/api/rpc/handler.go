// internal/app/api/rpc/handler.go

// Package rpc exposes the engine operations as typed procedures over
// HTTP: one route per operation, JSON request/response bodies, and an
// error envelope carrying a machine code plus a message. Mutating
// procedures consult the group policy before touching the store and
// emit one audit event on success.
package rpc

import (
	groupstore "github.com/orgdesk/orgdesk/internal/app/store/groups"
	groupadminstore "github.com/orgdesk/orgdesk/internal/app/store/groupadmins"
	membershipstore "github.com/orgdesk/orgdesk/internal/app/store/memberships"
	rolestore "github.com/orgdesk/orgdesk/internal/app/store/roles"
	userstore "github.com/orgdesk/orgdesk/internal/app/store/users"
	vacancystore "github.com/orgdesk/orgdesk/internal/app/store/vacancies"
	"github.com/orgdesk/orgdesk/internal/app/store/audit"
	"github.com/orgdesk/orgdesk/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the RPC procedures.
type Handler struct {
	DB    *mongo.Database
	Log   *zap.Logger
	Audit *auditlog.Logger

	Groups      *groupstore.Store
	Members     *membershipstore.Store
	Users       *userstore.Store
	Roles       *rolestore.Store
	Vacancies   *vacancystore.Store
	GroupAdmins *groupadminstore.Store
	AuditStore  *audit.Store
}

// NewHandler constructs the RPC Handler. It is called from the
// bootstrap BuildHandler function, where the database and logger are
// already initialized.
func NewHandler(db *mongo.Database, logger *zap.Logger, auditLog *auditlog.Logger) *Handler {
	return &Handler{
		DB:    db,
		Log:   logger,
		Audit: auditLog,

		Groups:      groupstore.New(db, logger),
		Members:     membershipstore.New(db),
		Users:       userstore.New(db),
		Roles:       rolestore.New(db),
		Vacancies:   vacancystore.New(db),
		GroupAdmins: groupadminstore.New(db),
		AuditStore:  audit.New(db),
	}
}
