// Package search is the client for the vector search index that backs
// document-grounded chat. Every query is filtered to the caller's
// (tenant, user, thread) triple so retrieval never crosses an ownership
// boundary.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Config struct {
	BaseURL    string
	APIKey     string
	IndexName  string
	APIVersion string
	Timeout    time.Duration
}

type Client struct {
	client     *resty.Client
	indexName  string
	apiVersion string
	embed      Embedder
}

// Embedder turns query text into a vector. The openai client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

func New(cfg Config, embed Embedder) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-11-01"
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client:     cli,
		indexName:  cfg.IndexName,
		apiVersion: cfg.APIVersion,
		embed:      embed,
	}
}

// Document is one indexed chunk.
type Document struct {
	ID           string    `json:"id"`
	PageContent  string    `json:"pageContent"`
	Embedding    []float32 `json:"embedding,omitempty"`
	UserID       string    `json:"userId"`
	ChatThreadID string    `json:"chatThreadId"`
	TenantID     string    `json:"tenantId"`
	Metadata     string    `json:"metadata"`
	CreatedDate  string    `json:"createdDate"`
	FileName     string    `json:"fileName"`
	Order        int       `json:"order"`
	Score        float64   `json:"@search.score,omitempty"`
}

type vectorQuery struct {
	Vector []float32 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
	Kind   string    `json:"kind"`
}

type searchRequest struct {
	Search        string        `json:"search"`
	Filter        string        `json:"filter"`
	Top           int           `json:"top"`
	VectorQueries []vectorQuery `json:"vectorQueries"`
}

type searchResponse struct {
	Value []Document `json:"value"`
}

type deleteAction struct {
	ID     string `json:"id"`
	Action string `json:"@search.action"`
}

// ownerFilter scopes a query to one user's thread within one tenant.
func ownerFilter(tenantID, userID, threadID string) string {
	return fmt.Sprintf("search.in(userId, '%s') and search.in(chatThreadId, '%s') and search.in(tenantId, '%s')",
		userID, threadID, tenantID)
}

func (c *Client) searchURL() string {
	return fmt.Sprintf("/indexes/%s/docs/search?api-version=%s", c.indexName, c.apiVersion)
}

func (c *Client) indexURL() string {
	return fmt.Sprintf("/indexes/%s/docs/index?api-version=%s", c.indexName, c.apiVersion)
}

// IndexDocuments embeds the chunks and uploads them to the index.
func (c *Client) IndexDocuments(ctx context.Context, docs []Document) error {
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.PageContent
	}
	vectors, err := c.embed.Embed(ctx, contents)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	for i := range docs {
		docs[i].Embedding = vectors[i]
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"value": docs}).
		Post(c.indexURL())
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("index api: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SimilaritySearch embeds the query and returns the k nearest chunks
// owned by the caller's thread.
func (c *Client) SimilaritySearch(ctx context.Context, query string, k int, tenantID, userID, threadID string) ([]Document, error) {
	vectors, err := c.embed.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var out searchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(searchRequest{
			Search: "*",
			Filter: ownerFilter(tenantID, userID, threadID),
			Top:    k,
			VectorQueries: []vectorQuery{{
				Vector: vectors[0],
				Fields: "embedding",
				K:      k,
				Kind:   "vector",
			}},
		}).
		SetResult(&out).
		Post(c.searchURL())
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search api: status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Value, nil
}

// DeleteThreadDocuments removes every chunk a thread owns from the
// index. Called by the thread delete cascade.
func (c *Client) DeleteThreadDocuments(ctx context.Context, tenantID, userID, threadID string) error {
	var found searchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(searchRequest{
			Search:        "*",
			Filter:        ownerFilter(tenantID, userID, threadID),
			Top:           1000,
			VectorQueries: []vectorQuery{},
		}).
		SetResult(&found).
		Post(c.searchURL())
	if err != nil {
		return fmt.Errorf("search request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("search api: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(found.Value) == 0 {
		return nil
	}

	actions := make([]deleteAction, len(found.Value))
	for i, d := range found.Value {
		actions[i] = deleteAction{ID: d.ID, Action: "delete"}
	}

	resp, err = c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"value": actions}).
		Post(c.indexURL())
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete api: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
