// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. RecipeHub
// uses it to bootstrap the global admin account so a fresh deployment always
// has a moderator.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail != "" {
		users := userstore.New(deps.MongoDatabase)
		if err := users.EnsureAdmin(ctx, appCfg.AdminEmail, appCfg.AdminName); err != nil {
			return err
		}
		logger.Info("global admin ensured", zap.String("email", appCfg.AdminEmail))
	}
	return nil
}
