// internal/app/store/documents/docstore.go
package docstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/qgovau/qchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store records uploaded chat documents. The chunked text itself lives in
// the vector index; these rows are what listing and deletion walk.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("chat_documents")}
}

// Add records a newly indexed upload.
func (s *Store) Add(ctx context.Context, tenantID, userID, threadID, name, indexID string, chunks int) (models.ChatDocument, error) {
	d := models.ChatDocument{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		TenantID:  tenantID,
		UserID:    userID,
		Name:      name,
		IndexID:   indexID,
		Chunks:    chunks,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		return models.ChatDocument{}, err
	}
	return d, nil
}

// ListForThread returns the live documents attached to a thread.
func (s *Store) ListForThread(ctx context.Context, tenantID, userID, threadID string) ([]models.ChatDocument, error) {
	filter := bson.M{
		"tenant_id":  tenantID,
		"user_id":    userID,
		"thread_id":  threadID,
		"is_deleted": false,
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []models.ChatDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// SoftDeleteThread flags every document row in a thread as deleted.
func (s *Store) SoftDeleteThread(ctx context.Context, tenantID, userID, threadID string) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"tenant_id": tenantID, "user_id": userID, "thread_id": threadID},
		bson.M{"$set": bson.M{"is_deleted": true}})
	return err
}
