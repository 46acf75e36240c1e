// internal/app/store/authstate/store.go
package authstate

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store holds short-lived OIDC state/nonce pairs so the sign-in callback
// can be validated across instances. Rows are single-use and expire.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("auth_state")}
}

type record struct {
	State     string    `bson:"_id"`
	Nonce     string    `bson:"nonce"`
	ReturnURL string    `bson:"return_url"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// Save stores a state with its nonce and expiry.
func (s *Store) Save(ctx context.Context, state, nonce, returnURL string, expiresAt time.Time) error {
	_, err := s.c.InsertOne(ctx, record{
		State:     state,
		Nonce:     nonce,
		ReturnURL: returnURL,
		ExpiresAt: expiresAt,
	})
	return err
}

// Consume validates and deletes a state in one step, so replayed callbacks
// fail. Returns ok=false for unknown or expired states.
func (s *Store) Consume(ctx context.Context, state string) (nonce, returnURL string, ok bool, err error) {
	var rec record
	err = s.c.FindOneAndDelete(ctx, bson.M{"_id": state}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	if time.Now().UTC().After(rec.ExpiresAt) {
		return "", "", false, nil
	}
	return rec.Nonce, rec.ReturnURL, true, nil
}
