// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"sync"
	"time"

	auditeventsfeature "github.com/dalemusser/recipehub/internal/app/features/auditevents"
	authgooglefeature "github.com/dalemusser/recipehub/internal/app/features/authgoogle"
	groupsfeature "github.com/dalemusser/recipehub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/recipehub/internal/app/features/health"
	loginfeature "github.com/dalemusser/recipehub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/recipehub/internal/app/features/logout"
	moderationfeature "github.com/dalemusser/recipehub/internal/app/features/moderation"
	recipesfeature "github.com/dalemusser/recipehub/internal/app/features/recipes"
	registerfeature "github.com/dalemusser/recipehub/internal/app/features/register"
	userinfofeature "github.com/dalemusser/recipehub/internal/app/features/userinfo"
	"github.com/dalemusser/recipehub/internal/app/store/audit"
	groupstore "github.com/dalemusser/recipehub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/recipehub/internal/app/store/memberships"
	moderationstore "github.com/dalemusser/recipehub/internal/app/store/moderation"
	recipestore "github.com/dalemusser/recipehub/internal/app/store/recipes"
	tokenstore "github.com/dalemusser/recipehub/internal/app/store/tokens"
	userstore "github.com/dalemusser/recipehub/internal/app/store/users"
	"github.com/dalemusser/recipehub/internal/app/system/auditlog"
	"github.com/dalemusser/recipehub/internal/app/system/auth"
	"github.com/dalemusser/recipehub/internal/app/system/grouplock"
	"github.com/dalemusser/recipehub/internal/app/system/pendingcounts"
	"github.com/dalemusser/recipehub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Background workers started by BuildHandler, stopped in Shutdown.
var (
	workersMu sync.Mutex
	workers   []interface{ Stop() }
)

func registerWorker(w interface{ Stop() }) {
	workersMu.Lock()
	workers = append(workers, w)
	workersMu.Unlock()
}

func stopWorkers() {
	workersMu.Lock()
	defer workersMu.Unlock()
	for _, w := range workers {
		w.Stop()
	}
	workers = nil
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. RecipeHub serves a JSON API: auth and
// account endpoints, group membership with invite codes and join requests,
// recipes, and the admin moderation queues.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	secure := coreCfg.Env == "prod"

	// Session manager resolves both the browser cookie session and the
	// SPA's bearer tokens.
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	// Stores.
	users := userstore.New(db)
	tokens := tokenstore.New(db, appCfg.TokenTTL)
	groups := groupstore.New(db)
	memberships := membershipstore.New(db, grouplock.NewKeyed())
	recipes := recipestore.New(db)
	groupDecisions := moderationstore.New(db, moderationstore.ContentGroups)
	recipeDecisions := moderationstore.New(db, moderationstore.ContentRecipes)
	auditStore := audit.New(db)

	sessionMgr.SetTokenResolver(tokens)

	auditLog := auditlog.New(auditStore, logger)

	// Pending moderation counts refresh in the background for the admin
	// badge.
	counts := pendingcounts.New(groupDecisions, recipeDecisions, logger, appCfg.CountsRefreshInterval)
	counts.Start()
	registerWorker(counts)

	loginLimiter := ratelimit.New(appCfg.LoginRateLimit, appCfg.LoginRateWindow)
	inviteLimiter := ratelimit.New(appCfg.InviteRateLimit, appCfg.InviteRateWindow)

	// Handlers.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	registerHandler := registerfeature.NewHandler(users, tokens, sessionMgr, auditLog, logger)
	loginHandler := loginfeature.NewHandler(users, tokens, sessionMgr, auditLog, loginLimiter, logger)
	logoutHandler := logoutfeature.NewHandler(tokens, sessionMgr, auditLog, logger)
	userinfoHandler := userinfofeature.NewHandler(users, logger)
	googleHandler := authgooglefeature.NewHandler(users, tokens, sessionMgr, auditLog,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, secure, logger)
	groupsHandler := groupsfeature.NewHandler(groups, memberships, users, auditLog, logger)
	recipesHandler := recipesfeature.NewHandler(recipes, groups, memberships, logger)
	moderationHandler := moderationfeature.NewHandler(groupDecisions, recipeDecisions, groups, recipes, counts, auditLog, logger)
	auditHandler := auditeventsfeature.NewHandler(auditStore, logger)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(60 * time.Second))

	// Loads the current user into context for every request, from bearer
	// token or cookie session.
	r.Use(sessionMgr.LoadSessionUser)

	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth/register", registerfeature.Routes(registerHandler))
		r.Mount("/auth/login", loginfeature.Routes(loginHandler))
		r.Mount("/auth/logout", logoutfeature.Routes(logoutHandler))

		r.With(sessionMgr.RequireSignedIn).Mount("/user", userinfofeature.Routes(userinfoHandler))

		// Moderation subrouters mount before the general group/recipe
		// routers so /moderation never collides with {id}.
		r.Mount("/groups/moderation", moderationfeature.GroupRoutes(moderationHandler, sessionMgr))
		r.Mount("/recipes/moderation", moderationfeature.RecipeRoutes(moderationHandler, sessionMgr))
		r.Mount("/moderation", moderationfeature.CountRoutes(moderationHandler, sessionMgr))

		r.Get("/groups/{id}/recipes", recipesHandler.HandleListByGroup)
		r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr, inviteLimiter))
		r.Mount("/recipes", recipesfeature.Routes(recipesHandler, sessionMgr))

		r.Mount("/admin/audit", auditeventsfeature.Routes(auditHandler, sessionMgr))
	})

	return r, nil
}
