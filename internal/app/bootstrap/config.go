// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"

	"github.com/qgovau/qchat/internal/app/system/prompt"
)

// appConfigKeys defines the configuration keys for QChat.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_key, etc.
//   - Environment variables: QCHAT_MONGO_URI, QCHAT_SESSION_KEY, etc.
//   - Command-line flags: --mongo_uri, --session_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "qchat", Desc: "MongoDB database name"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "API bearer-token signing secret"},
	{Name: "jwt_ttl", Default: "8h", Desc: "API bearer-token lifetime (e.g., 8h, 30m)"},

	// Federated identity
	{Name: "oidc_issuer", Default: "", Desc: "OIDC issuer URL (identity provider)"},
	{Name: "oidc_client_id", Default: "", Desc: "OIDC client ID"},
	{Name: "oidc_client_secret", Default: "", Desc: "OIDC client secret"},
	{Name: "oidc_redirect_url", Default: "http://localhost:3000/auth/callback", Desc: "OIDC redirect URL"},

	// Completion / embedding API
	{Name: "openai_base_url", Default: "", Desc: "Completion API base URL (API gateway)"},
	{Name: "openai_key", Default: "", Desc: "Completion API key"},
	{Name: "chat_deployment", Default: "gpt-4", Desc: "Chat completion deployment name"},
	{Name: "embed_deployment", Default: "text-embedding-ada-002", Desc: "Embedding deployment name"},

	// Vector search
	{Name: "search_base_url", Default: "", Desc: "Vector search service base URL"},
	{Name: "search_key", Default: "", Desc: "Vector search API key"},
	{Name: "search_index", Default: "qchat-documents", Desc: "Vector search index name"},

	// Content safety
	{Name: "safety_base_url", Default: "", Desc: "Content safety service base URL"},
	{Name: "safety_key", Default: "", Desc: "Content safety API key"},

	// Translator
	{Name: "translator_base_url", Default: "", Desc: "Translator service base URL"},
	{Name: "translator_key", Default: "", Desc: "Translator API key"},
	{Name: "translator_region", Default: "australiaeast", Desc: "Translator service region"},

	// Prompt and policy
	{Name: "system_prompt", Default: "", Desc: "Service-wide system prompt (caret-escaped; blank uses the built-in default)"},
	{Name: "admin_email_addresses", Default: "", Desc: "Comma-separated bootstrap administrator emails for new tenants"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific to
// QChat. config.LoadWithAppConfig merges .env files, config files,
// QCHAT_* environment variables, and command-line flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "QCHAT", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		SessionKey:    appValues.String("session_key"),
		SessionDomain: appValues.String("session_domain"),
		JWTSecret:     appValues.String("jwt_secret"),
		JWTTTL:        appValues.Duration("jwt_ttl", 8*time.Hour),

		OIDCIssuer:       appValues.String("oidc_issuer"),
		OIDCClientID:     appValues.String("oidc_client_id"),
		OIDCClientSecret: appValues.String("oidc_client_secret"),
		OIDCRedirectURL:  appValues.String("oidc_redirect_url"),

		OpenAIBaseURL:   appValues.String("openai_base_url"),
		OpenAIKey:       appValues.String("openai_key"),
		ChatDeployment:  appValues.String("chat_deployment"),
		EmbedDeployment: appValues.String("embed_deployment"),

		SearchBaseURL: appValues.String("search_base_url"),
		SearchKey:     appValues.String("search_key"),
		SearchIndex:   appValues.String("search_index"),

		SafetyBaseURL: appValues.String("safety_base_url"),
		SafetyKey:     appValues.String("safety_key"),

		TranslatorBaseURL: appValues.String("translator_base_url"),
		TranslatorKey:     appValues.String("translator_key"),
		TranslatorRegion:  appValues.String("translator_region"),

		// Deployment platforms cannot carry literal quotes in env values,
		// so the prompt arrives caret-escaped and is unescaped here once.
		SystemPrompt: prompt.UnescapeSystem(appValues.String("system_prompt")),

		AdminEmails: appValues.String("admin_email_addresses"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// QChat validates the MongoDB URI format and the presence of the OIDC
// settings, so misconfiguration fails at startup rather than at first
// sign-in.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if coreCfg.Env == "prod" {
		if appCfg.OIDCIssuer == "" || appCfg.OIDCClientID == "" || appCfg.OIDCClientSecret == "" {
			return fmt.Errorf("oidc_issuer, oidc_client_id and oidc_client_secret are required in production")
		}
		if appCfg.SessionKey == "" || len(appCfg.SessionKey) < 32 {
			return fmt.Errorf("session_key must be at least 32 characters in production")
		}
		if appCfg.JWTSecret == "" || len(appCfg.JWTSecret) < 32 {
			return fmt.Errorf("jwt_secret must be at least 32 characters in production")
		}
	}

	return nil
}
