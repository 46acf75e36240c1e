// internal/app/store/threads/threadstore.go
package threadstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/qgovau/qchat/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMonthsShown bounds how far back thread listings reach. Older
// threads are retained but fall out of the sidebar, matching retention
// guidance for the service.
const DefaultMonthsShown = 6

// Store persists chat threads, scoped by (tenant, user).
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("chat_threads")}
}

// ownerFilter scopes every query to the caller's tenant and user and
// excludes soft-deleted rows.
func ownerFilter(tenantID, userID string) bson.M {
	return bson.M{
		"tenant_id":  tenantID,
		"user_id":    userID,
		"is_deleted": false,
	}
}

// Create inserts a new thread with the service defaults: simple chat,
// precise style, official sensitivity.
func (s *Store) Create(ctx context.Context, tenantID, userID, userName, title string) (models.ChatThread, error) {
	if title == "" {
		title = "New Chat"
	}
	now := time.Now().UTC()
	t := models.ChatThread{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		UserID:      userID,
		UserName:    userName,
		Name:        title,
		ChatType:    models.ChatTypeSimple,
		Style:       models.StylePrecise,
		Sensitivity: models.SensitivityOfficial,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.ChatThread{}, err
	}
	return t, nil
}

// ListForUser returns the caller's live threads created within the
// trailing months window, newest first.
func (s *Store) ListForUser(ctx context.Context, tenantID, userID string, months int) ([]models.ChatThread, error) {
	if months <= 0 {
		months = DefaultMonthsShown
	}
	filter := ownerFilter(tenantID, userID)
	filter["created_at"] = bson.M{"$gte": time.Now().UTC().AddDate(0, -months, 0)}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var threads []models.ChatThread
	if err := cur.All(ctx, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// GetForUser loads one thread, owner-scoped. Returns mongo.ErrNoDocuments
// when the thread does not exist, is deleted, or belongs to someone else.
func (s *Store) GetForUser(ctx context.Context, tenantID, userID, threadID string) (*models.ChatThread, error) {
	filter := ownerFilter(tenantID, userID)
	filter["_id"] = threadID

	var t models.ChatThread
	if err := s.c.FindOne(ctx, filter).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Rename sets a new title, keeping the previous one and truncating to 30
// runes the way the sidebar expects.
func (s *Store) Rename(ctx context.Context, tenantID, userID, threadID, newName string) (*models.ChatThread, error) {
	t, err := s.GetForUser(ctx, tenantID, userID, threadID)
	if err != nil {
		return nil, err
	}

	if runes := []rune(newName); len(runes) > 30 {
		newName = string(runes[:30])
	}
	set := bson.M{
		"previous_name": t.Name,
		"name":          newName,
		"updated_at":    time.Now().UTC(),
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": threadID}, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return s.GetForUser(ctx, tenantID, userID, threadID)
}

// AttachFile converts a thread to chat-over-file mode.
func (s *Store) AttachFile(ctx context.Context, tenantID, userID, threadID, fileName, indexID string) (*models.ChatThread, error) {
	t, err := s.GetForUser(ctx, tenantID, userID, threadID)
	if err != nil {
		return nil, err
	}
	set := bson.M{
		"previous_name":       t.Name,
		"name":                "Chat with " + fileName,
		"chat_type":           models.ChatTypeData,
		"chat_over_file_name": fileName,
		"index_id":            indexID,
		"updated_at":          time.Now().UTC(),
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": threadID}, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return s.GetForUser(ctx, tenantID, userID, threadID)
}

// UpdateSettings changes the conversation style and sensitivity marking.
func (s *Store) UpdateSettings(ctx context.Context, tenantID, userID, threadID, style, sensitivity string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if style != "" {
		set["style"] = style
	}
	if sensitivity != "" {
		set["sensitivity"] = sensitivity
	}

	filter := ownerFilter(tenantID, userID)
	filter["_id"] = threadID
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetReference associates an internal agency reference with the thread.
func (s *Store) SetReference(ctx context.Context, tenantID, userID, threadID, reference string) error {
	filter := ownerFilter(tenantID, userID)
	filter["_id"] = threadID
	_, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"internal_reference": reference,
		"updated_at":         time.Now().UTC(),
	}})
	return err
}

// BumpSafetyTrigger increments the thread's content-safety trigger counter.
func (s *Store) BumpSafetyTrigger(ctx context.Context, tenantID, userID, threadID string) error {
	filter := ownerFilter(tenantID, userID)
	filter["_id"] = threadID
	_, err := s.c.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"safety_trigger_count": 1}})
	return err
}

// SoftDelete marks the thread deleted. Cascading the flag to messages and
// documents (and clearing the vector index) is the caller's job, since it
// spans collections and an external service.
func (s *Store) SoftDelete(ctx context.Context, tenantID, userID, threadID string) error {
	filter := ownerFilter(tenantID, userID)
	filter["_id"] = threadID
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"is_deleted": true,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
