// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig handles
// framework-level settings (ports, TLS, logging, CORS); AppConfig is where
// everything specific to RecipeHub lives.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions
	SessionDomain string // Cookie domain (blank means current host)

	// Bearer tokens issued to the SPA
	TokenTTL time.Duration // Lifetime of issued API tokens

	// Base URL of the deployment, used for OAuth callbacks
	BaseURL string // e.g., "https://recipehub.example.com" or "http://localhost:3000"

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Admin bootstrap: the user with this email is promoted to global admin
	// at startup so a fresh deployment always has a moderator.
	AdminEmail string
	AdminName  string

	// Login rate limiting
	LoginRateLimit  int           // Attempts allowed per window per IP
	LoginRateWindow time.Duration // Window size

	// Invite-code endpoint rate limiting (lookup and join)
	InviteRateLimit  int           // Attempts allowed per window per IP
	InviteRateWindow time.Duration // Window size

	// Moderation pending-count refresh interval
	CountsRefreshInterval time.Duration
}
