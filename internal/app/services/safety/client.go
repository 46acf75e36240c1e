// Package safety screens chat messages through the content-safety API
// before they reach the model.
package safety

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Screened categories, in descending order of how severely a flag is
// treated when several trip at once.
const (
	CategoryHate     = "Hate"
	CategorySexual   = "Sexual"
	CategoryViolence = "Violence"
	CategorySelfHarm = "SelfHarm"
)

var categories = []string{CategoryHate, CategorySelfHarm, CategorySexual, CategoryViolence}

// categoryRank orders flagged categories when picking the headline one.
var categoryRank = map[string]int{
	CategoryHate:     4,
	CategorySexual:   3,
	CategoryViolence: 2,
	CategorySelfHarm: 1,
}

// categoryMessages phrase each flag for the user. Self-harm carries
// support service details rather than a bare refusal.
var categoryMessages = map[string]string{
	CategoryHate:     "contain hate speech",
	CategorySexual:   "contain sexual content",
	CategoryViolence: "contain violent content",
	CategorySelfHarm: "contain self-harm content; remember that support services are available. " +
		"If you are in danger please call 000 or Lifeline on 13 11 14. Otherwise, please reach out to " +
		"a trusted friend, colleague, or Employee Assistance Program (EAP) for support.",
}

// CategoryResult is one category's severity score for a piece of text.
type CategoryResult struct {
	Category string
	Severity int
}

// Analysis is the screened verdict for one message.
type Analysis struct {
	Flagged    bool
	Categories []CategoryResult
}

// MainCategory returns the flagged category with the highest severity;
// rank breaks ties. Empty when nothing is flagged.
func (a Analysis) MainCategory() string {
	main := ""
	best := -1
	for _, c := range a.Categories {
		if c.Severity == 0 {
			continue
		}
		if c.Severity > best || (c.Severity == best && categoryRank[c.Category] > categoryRank[main]) {
			main = c.Category
			best = c.Severity
		}
	}
	return main
}

// UserMessage phrases the verdict for display, one clause per flagged
// category, ordered most severe first.
func (a Analysis) UserMessage() string {
	flagged := make([]CategoryResult, 0, len(a.Categories))
	for _, c := range a.Categories {
		if c.Severity > 0 {
			flagged = append(flagged, c)
		}
	}
	if len(flagged) == 0 {
		return ""
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		if flagged[i].Severity != flagged[j].Severity {
			return flagged[i].Severity > flagged[j].Severity
		}
		return categoryRank[flagged[i].Category] > categoryRank[flagged[j].Category]
	})

	clauses := make([]string, len(flagged))
	for i, c := range flagged {
		clauses[i] = fmt.Sprintf("This message may %s;", categoryMessages[c.Category])
	}
	return strings.Join(clauses, " ")
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	client *resty.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{client: cli}
}

type analyzeRequest struct {
	Text       string   `json:"text"`
	Categories []string `json:"categories"`
	OutputType string   `json:"outputType"`
}

type analyzeResponse struct {
	CategoriesAnalysis []struct {
		Category string `json:"category"`
		Severity int    `json:"severity"`
	} `json:"categoriesAnalysis"`
}

// AnalyzeText screens one message across all categories.
func (c *Client) AnalyzeText(ctx context.Context, text string) (Analysis, error) {
	var out analyzeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(analyzeRequest{
			Text:       text,
			Categories: categories,
			OutputType: "FourSeverityLevels",
		}).
		SetResult(&out).
		Post("/text:analyze")
	if err != nil {
		return Analysis{}, fmt.Errorf("content safety request: %w", err)
	}
	if resp.IsError() {
		return Analysis{}, fmt.Errorf("content safety api: status %d: %s", resp.StatusCode(), resp.String())
	}

	analysis := Analysis{Categories: make([]CategoryResult, 0, len(out.CategoriesAnalysis))}
	for _, c := range out.CategoriesAnalysis {
		analysis.Categories = append(analysis.Categories, CategoryResult{
			Category: c.Category,
			Severity: c.Severity,
		})
		if c.Severity > 0 {
			analysis.Flagged = true
		}
	}
	return analysis, nil
}
