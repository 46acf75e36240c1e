// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"time"

	"github.com/qgovau/qchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists chat messages, scoped by (tenant, user, thread).
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("chat_messages")}
}

func threadFilter(tenantID, userID, threadID string) bson.M {
	return bson.M{
		"tenant_id":  tenantID,
		"user_id":    userID,
		"thread_id":  threadID,
		"is_deleted": false,
	}
}

// Insert stores one message, stamping CreatedAt if unset.
func (s *Store) Insert(ctx context.Context, m models.ChatMessage) (models.ChatMessage, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.ChatMessage{}, err
	}
	return m, nil
}

// ListForThread returns a thread's live messages in order.
func (s *Store) ListForThread(ctx context.Context, tenantID, userID, threadID string) ([]models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, threadFilter(tenantID, userID, threadID), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []models.ChatMessage
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// RecentForThread returns the newest n messages in chronological order,
// the window handed to the completion API.
func (s *Store) RecentForThread(ctx context.Context, tenantID, userID, threadID string, n int64) ([]models.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(n)
	cur, err := s.c.Find(ctx, threadFilter(tenantID, userID, threadID), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []models.ChatMessage
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	// reverse to chronological
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// GetForUser loads one message, owner-scoped.
func (s *Store) GetForUser(ctx context.Context, tenantID, userID, threadID, messageID string) (*models.ChatMessage, error) {
	filter := threadFilter(tenantID, userID, threadID)
	filter["_id"] = messageID

	var m models.ChatMessage
	if err := s.c.FindOne(ctx, filter).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SetFeedback records user feedback on an assistant message.
func (s *Store) SetFeedback(ctx context.Context, tenantID, userID, threadID, messageID, feedback, sentiment, reason string) error {
	filter := threadFilter(tenantID, userID, threadID)
	filter["_id"] = messageID
	filter["role"] = models.RoleAssistant

	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"feedback":  feedback,
		"sentiment": sentiment,
		"reason":    reason,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SoftDeleteThread flags every message in a thread as deleted. Used by the
// thread soft-delete cascade.
func (s *Store) SoftDeleteThread(ctx context.Context, tenantID, userID, threadID string) error {
	_, err := s.c.UpdateMany(ctx, threadFilter(tenantID, userID, threadID),
		bson.M{"$set": bson.M{"is_deleted": true}})
	return err
}
