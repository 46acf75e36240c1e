// internal/domain/models/chat.go
package models

import "time"

// Conversation tuning options chosen per thread.
const (
	StyleCreative = "creative"
	StyleBalanced = "balanced"
	StylePrecise  = "precise"

	SensitivityOfficial  = "official"
	SensitivitySensitive = "sensitive"
	SensitivityProtected = "protected"
)

// Chat types: a plain conversation or one grounded over an uploaded file.
const (
	ChatTypeSimple = "simple"
	ChatTypeData   = "data"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Feedback sentiment on assistant messages.
const (
	SentimentNeutral  = "neutral"
	SentimentPositive = "positive"
	SentimentNegative = "negative"
)

// ChatThread is one conversation. Threads are soft-deleted: IsDeleted is
// flipped and the row kept, so exports and audits can still reach it.
type ChatThread struct {
	ID           string `bson:"_id" json:"id"`
	TenantID     string `bson:"tenant_id" json:"tenantId"`
	UserID       string `bson:"user_id" json:"userId"` // hashed UPN
	UserName     string `bson:"user_name" json:"userName"`
	Name         string `bson:"name" json:"name"`
	PreviousName string `bson:"previous_name,omitempty" json:"previousName,omitempty"`

	ChatType    string `bson:"chat_type" json:"chatType"`
	Style       string `bson:"conversation_style" json:"conversationStyle"`
	Sensitivity string `bson:"conversation_sensitivity" json:"conversationSensitivity"`

	// Set when the thread is grounded over an uploaded document.
	ChatOverFileName string `bson:"chat_over_file_name,omitempty" json:"chatOverFileName,omitempty"`
	IndexID          string `bson:"index_id,omitempty" json:"indexId,omitempty"`

	// InternalReference is a free-text agency reference number a user can
	// associate with the conversation.
	InternalReference string `bson:"internal_reference,omitempty" json:"internalReference,omitempty"`

	SafetyTriggerCount int `bson:"safety_trigger_count" json:"safetyTriggerCount"`

	IsDeleted bool      `bson:"is_deleted" json:"isDeleted"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ChatMessage is one turn in a thread, user or assistant.
type ChatMessage struct {
	ID       string `bson:"_id" json:"id"`
	ThreadID string `bson:"thread_id" json:"threadId"`
	TenantID string `bson:"tenant_id" json:"tenantId"`
	UserID   string `bson:"user_id" json:"userId"`

	Role    string `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`

	// User messages carry the prompt fragments that framed them.
	SystemPrompt string `bson:"system_prompt,omitempty" json:"systemPrompt,omitempty"`
	TenantPrompt string `bson:"tenant_prompt,omitempty" json:"tenantPrompt,omitempty"`
	UserPrompt   string `bson:"user_prompt,omitempty" json:"userPrompt,omitempty"`
	Context      string `bson:"context,omitempty" json:"context,omitempty"`

	// Assistant messages keep the untranslated completion and any feedback.
	OriginalCompletion string `bson:"original_completion,omitempty" json:"originalCompletion,omitempty"`
	Feedback           string `bson:"feedback,omitempty" json:"feedback,omitempty"`
	Sentiment          string `bson:"sentiment,omitempty" json:"sentiment,omitempty"`
	Reason             string `bson:"reason,omitempty" json:"reason,omitempty"`

	IsDeleted bool      `bson:"is_deleted" json:"isDeleted"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// ChatDocument records one uploaded file attached to a thread. The chunked
// content lives in the vector index under IndexID; this row is the
// bookkeeping needed to list and delete it.
type ChatDocument struct {
	ID       string `bson:"_id" json:"id"`
	ThreadID string `bson:"thread_id" json:"threadId"`
	TenantID string `bson:"tenant_id" json:"tenantId"`
	UserID   string `bson:"user_id" json:"userId"`

	Name    string `bson:"name" json:"name"`
	IndexID string `bson:"index_id" json:"indexId"`
	Chunks  int    `bson:"chunks" json:"chunks"`

	IsDeleted bool      `bson:"is_deleted" json:"isDeleted"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
