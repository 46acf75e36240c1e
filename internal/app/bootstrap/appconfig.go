// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS,
// logging level, CORS, body limits). AppConfig is everything specific to
// QChat: the document store, the identity provider, the managed AI
// services behind the API gateway, and sign-in policy defaults.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI      string
	MongoDatabase string

	// Session and API-token configuration
	SessionKey    string // secret for signing session cookies
	SessionDomain string // cookie domain (blank means current host)
	JWTSecret     string // secret for signing API bearer tokens
	JWTTTL        time.Duration

	// Federated identity (OIDC)
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// Completion / embedding API
	OpenAIBaseURL   string
	OpenAIKey       string
	ChatDeployment  string
	EmbedDeployment string

	// Vector search index
	SearchBaseURL string
	SearchKey     string
	SearchIndex   string

	// Content safety API
	SafetyBaseURL string
	SafetyKey     string

	// Translator API (en-US -> en-GB localisation)
	TranslatorBaseURL string
	TranslatorKey     string
	TranslatorRegion  string

	// SystemPrompt is the service-wide prompt, already caret-unescaped.
	// Empty means the built-in default.
	SystemPrompt string

	// AdminEmails is the comma-separated bootstrap administrator list
	// seeded into auto-provisioned tenants.
	AdminEmails string

	// Audit logging destinations ("all", "db", "log", "off")
	AuditLogAuth  string
	AuditLogAdmin string
}
