// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports,
// TLS, logging level, request limits); AppConfig carries everything
// specific to this application. Values are loaded in LoadConfig from
// config files, ORGDESK_* environment variables, or flags.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max driver connection pool size
	MongoMinPoolSize uint64 // Min driver connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: orgdesk-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Audit trail configuration: "all", "db", "log", or "off" per
	// event category.
	AuditLogAuth  string
	AuditLogAdmin string

	// AdminEmail, when set, promotes that account to the admin role on
	// startup. Used to bootstrap the first administrator.
	AdminEmail string
}
