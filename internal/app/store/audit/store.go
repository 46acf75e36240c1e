// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories.
const (
	CategoryAuth   = "auth"
	CategoryTenant = "tenant"
	CategoryUser   = "user"
)

// Event types.
const (
	EventSignInSuccess     = "signin_success"
	EventSignInDenied      = "signin_denied"
	EventSignInError       = "signin_error"
	EventTenantProvisioned = "tenant_provisioned"
	EventTenantUpdated     = "tenant_updated"
	EventTermsAccepted     = "terms_accepted"
	EventLogout            = "logout"
)

// Event is one audit row. UserID is the hashed principal id; TenantID is
// the identity provider's tenant id.
type Event struct {
	ID            interface{}       `bson:"_id,omitempty" json:"id,omitempty"`
	Category      string            `bson:"category" json:"category"`
	EventType     string            `bson:"event_type" json:"eventType"`
	TenantID      string            `bson:"tenant_id,omitempty" json:"tenantId,omitempty"`
	UserID        string            `bson:"user_id,omitempty" json:"userId,omitempty"`
	UPN           string            `bson:"upn,omitempty" json:"upn,omitempty"`
	IP            string            `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent     string            `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	Success       bool              `bson:"success" json:"success"`
	FailureReason string            `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`
	Details       map[string]string `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt     time.Time         `bson:"created_at" json:"createdAt"`
}

// Store persists audit events.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log inserts one event, stamping CreatedAt if unset.
func (s *Store) Log(ctx context.Context, e Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// RecentForTenant returns the newest events for a tenant, capped at limit.
func (s *Store) RecentForTenant(ctx context.Context, tenantID string, limit int64) ([]Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
