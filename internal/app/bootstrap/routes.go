// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authfedfeature "github.com/qgovau/qchat/internal/app/features/authfed"
	chatfeature "github.com/qgovau/qchat/internal/app/features/chat"
	documentsfeature "github.com/qgovau/qchat/internal/app/features/documents"
	errorsfeature "github.com/qgovau/qchat/internal/app/features/errors"
	exportfeature "github.com/qgovau/qchat/internal/app/features/export"
	healthfeature "github.com/qgovau/qchat/internal/app/features/health"
	homefeature "github.com/qgovau/qchat/internal/app/features/home"
	logoutfeature "github.com/qgovau/qchat/internal/app/features/logout"
	profilefeature "github.com/qgovau/qchat/internal/app/features/profile"
	tenantadminfeature "github.com/qgovau/qchat/internal/app/features/tenantadmin"
	termsfeature "github.com/qgovau/qchat/internal/app/features/terms"
	threadsfeature "github.com/qgovau/qchat/internal/app/features/threads"
	"github.com/qgovau/qchat/internal/app/services/openai"
	"github.com/qgovau/qchat/internal/app/services/safety"
	"github.com/qgovau/qchat/internal/app/services/search"
	"github.com/qgovau/qchat/internal/app/services/translator"
	"github.com/qgovau/qchat/internal/app/store/audit"
	"github.com/qgovau/qchat/internal/app/store/authstate"
	docstore "github.com/qgovau/qchat/internal/app/store/documents"
	messagestore "github.com/qgovau/qchat/internal/app/store/messages"
	tenantstore "github.com/qgovau/qchat/internal/app/store/tenants"
	threadstore "github.com/qgovau/qchat/internal/app/store/threads"
	userstore "github.com/qgovau/qchat/internal/app/store/users"
	"github.com/qgovau/qchat/internal/app/system/auditlog"
	"github.com/qgovau/qchat/internal/app/system/auth"
	"github.com/qgovau/qchat/internal/app/system/normalize"
	"github.com/qgovau/qchat/internal/app/system/promptsource"
	"github.com/qgovau/qchat/internal/app/system/signin"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and any Startup hooks have completed. QChat initializes the session
// store and template engine, builds the stores and service clients, and
// mounts the page and API feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionDomain, secure, logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return nil, err
	}

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	db := deps.MongoDatabase

	// Stores
	users := userstore.New(db)
	tenants := tenantstore.New(db)
	threads := threadstore.New(db)
	messages := messagestore.New(db)
	documents := docstore.New(db)
	auditStore := audit.New(db)
	states := authstate.New(db)

	auditLog := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	// Service clients for the managed AI services behind the gateway.
	openaiClient := openai.New(openai.Config{
		BaseURL:     appCfg.OpenAIBaseURL,
		APIKey:      appCfg.OpenAIKey,
		Deployment:  appCfg.ChatDeployment,
		EmbedDeploy: appCfg.EmbedDeployment,
	})
	searchClient := search.New(search.Config{
		BaseURL:   appCfg.SearchBaseURL,
		APIKey:    appCfg.SearchKey,
		IndexName: appCfg.SearchIndex,
	}, openaiClient)
	safetyClient := safety.New(safety.Config{
		BaseURL: appCfg.SafetyBaseURL,
		APIKey:  appCfg.SafetyKey,
	})
	translateClient := translator.New(translator.Config{
		BaseURL: appCfg.TranslatorBaseURL,
		APIKey:  appCfg.TranslatorKey,
		Region:  appCfg.TranslatorRegion,
	})

	resolver := signin.NewResolver(users, tenants, normalize.AdminList(appCfg.AdminEmails), logger)
	tokens := auth.NewTokenIssuer(appCfg.JWTSecret, appCfg.JWTTTL)
	prompts := promptsource.New(tenants, users)

	r := chi.NewRouter()

	// Global auth middleware: session cookie first, bearer token for API
	// callers without one.
	r.Use(auth.LoadSessionUser)
	r.Use(tokens.LoadBearerUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Pages
	homeHandler := homefeature.NewHandler(logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	termsHandler := termsfeature.NewHandler(users, auditLog, logger)
	r.Mount("/terms", termsfeature.Routes(termsHandler))

	errorsHandler := errorsfeature.NewHandler()
	r.Get("/unauthorised", errorsHandler.Unauthorised)
	r.Get("/login-error", errorsHandler.SignInFailed)

	// Federated sign-in. The provider performs issuer discovery, so it
	// is only wired when an issuer is configured; without one the sign-in
	// routes answer 503.
	if appCfg.OIDCIssuer != "" {
		provider, err := authfedfeature.NewProvider(context.Background(),
			appCfg.OIDCIssuer, appCfg.OIDCClientID, appCfg.OIDCClientSecret, appCfg.OIDCRedirectURL)
		if err != nil {
			logger.Error("oidc provider init failed", zap.Error(err))
			return nil, err
		}
		authHandler := authfedfeature.NewHandler(provider, states, resolver, auditLog, tokens, logger)
		r.Mount("/auth", authfedfeature.Routes(authHandler))
	} else {
		logger.Warn("oidc_issuer not configured; federated sign-in disabled")
		r.Mount("/auth", unavailable("sign-in is not configured"))
	}

	logoutHandler := logoutfeature.NewHandler(auditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// JSON API
	threadsHandler := threadsfeature.NewHandler(threads, messages, documents, searchClient, logger)
	r.Mount("/api/threads", threadsfeature.Routes(threadsHandler))

	chatHandler := chatfeature.NewHandler(threads, messages, openaiClient, safetyClient, translateClient, searchClient, prompts, appCfg.SystemPrompt, logger)
	r.Mount("/api/chat", chatfeature.Routes(chatHandler))

	documentsHandler := documentsfeature.NewHandler(threads, documents, searchClient, appCfg.SearchIndex, logger)
	r.Mount("/api/documents", documentsfeature.Routes(documentsHandler))

	exportHandler := exportfeature.NewHandler(threads, messages, logger)
	r.Mount("/api/export", exportfeature.Routes(exportHandler))

	profileHandler := profilefeature.NewHandler(users, logger)
	r.Mount("/api/profile", profilefeature.Routes(profileHandler))

	tenantHandler := tenantadminfeature.NewHandler(tenants, users, auditStore, auditLog, logger)
	r.Mount("/api/tenant", tenantadminfeature.Routes(tenantHandler))

	return r, nil
}

// unavailable returns a router that answers 503 for every path.
func unavailable(msg string) chi.Router {
	r := chi.NewRouter()
	r.HandleFunc("/*", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, msg, http.StatusServiceUnavailable)
	})
	return r
}
