package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/qgovau/qchat/internal/app/system/signin"
	"github.com/qgovau/qchat/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateTenant creates an onboarded test tenant.
func (f *Fixtures) CreateTenant(ctx context.Context, tenantID string, requiresGroupLogin bool, groups []string) models.TenantRecord {
	f.t.Helper()

	now := time.Now().UTC()
	tenant := models.TenantRecord{
		ID:                 tenantID,
		PrimaryDomain:      "agency.gov",
		Email:              "owner@agency.gov",
		SupportEmail:       "support@agency.gov",
		RequiresGroupLogin: requiresGroupLogin,
		Groups:             groups,
		Administrators:     []string{"admin@agency.gov"},
		CreatedBy:          "owner@agency.gov",
		DateCreated:        now,
		DateUpdated:        now,
	}

	if _, err := f.db.Collection("tenants").InsertOne(ctx, tenant); err != nil {
		f.t.Fatalf("failed to create test tenant: %v", err)
	}
	return tenant
}

// CreateUser creates a test user in the given tenant.
func (f *Fixtures) CreateUser(ctx context.Context, tenantID, upn string) models.UserRecord {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.UserRecord{
		ID:         signin.HashValue(upn),
		TenantID:   tenantID,
		UPN:        upn,
		Email:      upn,
		Name:       "Test User",
		Groups:     []string{},
		FirstLogin: now,
		LastLogin:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateThread creates a test chat thread for the given owner.
func (f *Fixtures) CreateThread(ctx context.Context, tenantID, userID, name string) models.ChatThread {
	f.t.Helper()

	now := time.Now().UTC()
	thread := models.ChatThread{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		UserID:      userID,
		UserName:    "Test User",
		Name:        name,
		ChatType:    models.ChatTypeSimple,
		Style:       models.StylePrecise,
		Sensitivity: models.SensitivityOfficial,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("chat_threads").InsertOne(ctx, thread); err != nil {
		f.t.Fatalf("failed to create test thread: %v", err)
	}
	return thread
}

// CreateMessage creates a test chat message in the given thread.
func (f *Fixtures) CreateMessage(ctx context.Context, tenantID, userID, threadID, role, content string) models.ChatMessage {
	f.t.Helper()

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := f.db.Collection("chat_messages").InsertOne(ctx, msg); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return msg
}
