// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/qgovau/qchat/internal/app/store/audit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for sign-in and sign-out events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for tenant administration events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.TenantID != "" {
		fields = append(fields, zap.String("tenant_id", event.TenantID))
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryTenant:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// SignInSuccess logs an authorized sign-in.
func (l *Logger) SignInSuccess(ctx context.Context, r *http.Request, tenantID, userID, upn string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignInSuccess,
		TenantID:  tenantID,
		UserID:    userID,
		UPN:       upn,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// SignInDenied logs a sign-in the resolver refused.
func (l *Logger) SignInDenied(ctx context.Context, r *http.Request, tenantID, userID, upn, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventSignInDenied,
		TenantID:      tenantID,
		UserID:        userID,
		UPN:           upn,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: reason,
	})
}

// SignInError logs a sign-in that failed on infrastructure rather than policy.
func (l *Logger) SignInError(ctx context.Context, r *http.Request, tenantID string, err error) {
	event := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignInError,
		TenantID:  tenantID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   false,
	}
	if err != nil {
		event.FailureReason = err.Error()
	}
	l.Log(ctx, event)
}

// Logout logs a user sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, tenantID, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		TenantID:  tenantID,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Tenant Events ---

// TenantProvisioned logs the auto-creation of a tenant on first sight.
func (l *Logger) TenantProvisioned(ctx context.Context, r *http.Request, tenantID, createdBy string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryTenant,
		EventType: audit.EventTenantProvisioned,
		TenantID:  tenantID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"created_by": createdBy,
		},
	})
}

// TenantUpdated logs an administrator changing tenant configuration.
func (l *Logger) TenantUpdated(ctx context.Context, r *http.Request, tenantID, actorID, fieldsChanged string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryTenant,
		EventType: audit.EventTenantUpdated,
		TenantID:  tenantID,
		UserID:    actorID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"fields_changed": fieldsChanged,
		},
	})
}

// TermsAccepted logs a user accepting the usage terms.
func (l *Logger) TermsAccepted(ctx context.Context, r *http.Request, tenantID, userID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventTermsAccepted,
		TenantID:  tenantID,
		UserID:    userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}
