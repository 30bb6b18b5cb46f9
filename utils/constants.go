package utils

// Application constants
const (
	// Application name
	AppName = "UpgradeForLess"

	// API version
	APIVersion = "v1"

	// Default port
	DefaultPort = "8080"

	// Default database settings
	DefaultDBHost    = "localhost"
	DefaultDBPort    = "5432"
	DefaultDBName    = "postgres"
	DefaultDBUser    = "postgres"
	DefaultDBSSLMode = "require"

	// Environments
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Webhook verification modes
	VerifyModeEnforce = "enforce"
	VerifyModeLogOnly = "log_only"

	// Maximum accepted webhook body (1MB)
	MaxWebhookBodySize = 1 << 20

	// Supabase role allowed to use admin routes
	ServiceRole = "service_role"

	// Context keys
	ContextUserID    = "user_id"
	ContextUserRole  = "role"
	ContextRequestID = "RequestID"
)
