// internal/app/store/tenants/tenantstore.go
package tenantstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qgovau/qchat/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicate is returned when Create loses a race: two users from a
// brand-new tenant signed in at the same time and the other sign-in won.
// The caller should re-read the winner's record.
var ErrDuplicate = errors.New("tenant record already exists")

// Store is keyed storage for tenant records.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tenants")}
}

// GetByID loads a tenant record. Returns mongo.ErrNoDocuments when the
// tenant has never been seen.
func (s *Store) GetByID(ctx context.Context, tenantID string) (*models.TenantRecord, error) {
	var t models.TenantRecord
	if err := s.c.FindOne(ctx, bson.M{"_id": tenantID}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new tenant record. The unique _id (tenant id) closes the
// double-create race between concurrent first sign-ins.
func (s *Store) Create(ctx context.Context, t models.TenantRecord) (models.TenantRecord, error) {
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.TenantRecord{}, ErrDuplicate
		}
		return models.TenantRecord{}, err
	}
	return t, nil
}

// ConfigUpdate holds the administratively editable tenant fields.
type ConfigUpdate struct {
	RequiresGroupLogin bool
	Groups             []string
	Administrators     []string
	ContextPrompt      string
}

// UpdateConfig applies an administrative change, appending one history
// entry per field that actually changed, attributed to modifiedBy.
func (s *Store) UpdateConfig(ctx context.Context, tenantID, modifiedBy string, upd ConfigUpdate) (*models.TenantRecord, error) {
	current, err := s.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339)
	history := current.History

	if current.RequiresGroupLogin != upd.RequiresGroupLogin {
		history = append(history, fmt.Sprintf("%s: requiresGroupLogin changed from %t to %t by %s",
			stamp, current.RequiresGroupLogin, upd.RequiresGroupLogin, modifiedBy))
	}
	if !equalStrings(current.Groups, upd.Groups) {
		history = append(history, fmt.Sprintf("%s: groups changed from %v to %v by %s",
			stamp, current.Groups, upd.Groups, modifiedBy))
	}
	if !equalStrings(current.Administrators, upd.Administrators) {
		history = append(history, fmt.Sprintf("%s: administrators changed from %v to %v by %s",
			stamp, current.Administrators, upd.Administrators, modifiedBy))
	}
	if current.ContextPrompt != upd.ContextPrompt {
		history = append(history, fmt.Sprintf("%s: contextPrompt changed by %s", stamp, modifiedBy))
	}

	set := bson.M{
		"requires_group_login": upd.RequiresGroupLogin,
		"groups":               upd.Groups,
		"administrators":       upd.Administrators,
		"context_prompt":       upd.ContextPrompt,
		"history":              history,
		"modified_by":          modifiedBy,
		"date_updated":         now,
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": tenantID}, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, tenantID)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsNotFound reports whether err means the tenant has no record yet.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
