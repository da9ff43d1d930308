// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	userstore "github.com/orgdesk/orgdesk/internal/app/store/users"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
//
// If admin_email is configured, the matching account is promoted to the
// admin role so a fresh deployment always has at least one
// administrator.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail == "" {
		return nil
	}

	users := userstore.New(deps.MongoDatabase)
	promoted, err := users.EnsureAdmin(ctx, appCfg.AdminEmail)
	if err != nil {
		logger.Error("admin bootstrap failed", zap.Error(err))
		return err
	}
	if promoted {
		logger.Info("promoted admin account", zap.String("email", appCfg.AdminEmail))
	} else {
		logger.Warn("admin_email set but no such account exists yet",
			zap.String("email", appCfg.AdminEmail))
	}
	return nil
}
