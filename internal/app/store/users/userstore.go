// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/qgovau/qchat/internal/app/system/normalize"
	"github.com/qgovau/qchat/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicate is returned when Create loses a race to another sign-in for
// the same (tenant, user) pair.
var ErrDuplicate = errors.New("user record already exists")

// Store is keyed storage for user records, partitioned by tenant.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByUPN loads the record for a (tenant, principal) pair. Returns
// mongo.ErrNoDocuments when absent.
func (s *Store) GetByUPN(ctx context.Context, tenantID, upn string) (*models.UserRecord, error) {
	var u models.UserRecord
	err := s.c.FindOne(ctx, bson.M{"tenant_id": tenantID, "upn": upn}).Decode(&u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID loads a record by hashed principal id within a tenant.
func (s *Store) GetByID(ctx context.Context, tenantID, id string) (*models.UserRecord, error) {
	var u models.UserRecord
	err := s.c.FindOne(ctx, bson.M{"_id": id, "tenant_id": tenantID}).Decode(&u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user record after normalizing contact fields.
// The caller supplies the deterministic ID (hashed UPN).
func (s *Store) Create(ctx context.Context, u models.UserRecord) (models.UserRecord, error) {
	u.Email = normalize.Email(u.Email)
	u.Name = normalize.Name(u.Name)

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.UserRecord{}, ErrDuplicate
		}
		return models.UserRecord{}, err
	}
	return u, nil
}

// Upsert replaces the whole record. Sign-in updates and terms acceptance
// go through here; the record carries its own append-only history.
func (s *Store) Upsert(ctx context.Context, u models.UserRecord) (models.UserRecord, error) {
	opts := options.Replace().SetUpsert(true)
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": u.ID, "tenant_id": u.TenantID}, u, opts)
	if err != nil {
		return models.UserRecord{}, err
	}
	return u, nil
}

// ListForTenant returns the tenant's users ordered by most recent login.
func (s *Store) ListForTenant(ctx context.Context, tenantID string, limit int64) ([]models.UserRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "last_login", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.UserRecord
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetContextPrompt updates the user's personal context prompt and
// appends a history entry.
func (s *Store) SetContextPrompt(ctx context.Context, tenantID, id, prompt string) error {
	entry := time.Now().UTC().Format(time.RFC3339) + ": Context prompt updated."
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "tenant_id": tenantID},
		bson.M{
			"$set":  bson.M{"context_prompt": prompt},
			"$push": bson.M{"history": entry},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// AcceptTerms marks the record as having accepted the terms of use and
// appends a history entry.
func (s *Store) AcceptTerms(ctx context.Context, tenantID, id string) error {
	now := time.Now().UTC()
	entry := now.Format(time.RFC3339) + ": Accepted terms of use."
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "tenant_id": tenantID},
		bson.M{
			"$set":  bson.M{"accepted_terms": true, "accepted_terms_date": now},
			"$push": bson.M{"history": entry},
		},
	)
	return err
}
