// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/orgdesk/orgdesk/internal/app/api/health"
	"github.com/orgdesk/orgdesk/internal/app/api/rpc"
	"github.com/orgdesk/orgdesk/internal/app/store/audit"
	"github.com/orgdesk/orgdesk/internal/app/system/auditlog"
	"github.com/orgdesk/orgdesk/internal/app/system/auth"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and the Startup hook have completed. It initializes the session
// store, wires the audit trail, and mounts the health endpoint and the
// RPC API.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return nil, err
	}

	auditLogger := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	r := chi.NewRouter()

	// Loads the signed-in actor into context for every request.
	r.Use(auth.LoadSessionActor)

	// Health check endpoint for load balancers and orchestrators.
	r.Mount("/health", health.Routes(health.NewHandler(deps.MongoClient, logger)))

	// Typed procedures. Everything the service does goes through here.
	apiHandler := rpc.NewHandler(deps.MongoDatabase, logger, auditLogger)
	r.Mount("/rpc", apiHandler.Routes())

	return r, nil
}
