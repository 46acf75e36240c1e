// Package translator localises model output from US to Australian
// English. Code blocks are shielded from translation and the original
// casing is restored afterwards, since the API is run lower-case to
// keep it from mangling acronyms.
package translator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
)

type Config struct {
	BaseURL string
	APIKey  string
	Region  string
	Timeout time.Duration
}

type Client struct {
	client *resty.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("api-key", cfg.APIKey).
		SetHeader("Ocp-Apim-Subscription-Region", cfg.Region).
		SetHeader("Content-Type", "application/json")

	return &Client{client: cli}
}

type translateItem struct {
	Text string `json:"text"`
}

type translateResult struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

var codeBlockRe = regexp.MustCompile("(?s)```.*?```")

// Translate converts text from en-US to en-GB spelling. Fenced code
// blocks pass through untouched. On an empty result the input is
// returned unchanged.
func (c *Client) Translate(ctx context.Context, input string) (string, error) {
	var codeBlocks []string
	shielded := codeBlockRe.ReplaceAllStringFunc(input, func(match string) string {
		codeBlocks = append(codeBlocks, match)
		return fmt.Sprintf("__codeblock_%d__", len(codeBlocks)-1)
	})

	translated, err := c.translate(ctx, strings.ToLower(shielded), "en-GB", "en-US")
	if err != nil {
		return "", err
	}

	result := shielded
	if translated != "" {
		result = RevertCase(shielded, translated)
	}

	for i, block := range codeBlocks {
		result = strings.Replace(result, fmt.Sprintf("__codeblock_%d__", i), block, 1)
	}
	return result, nil
}

func (c *Client) translate(ctx context.Context, text, to, from string) (string, error) {
	var out []translateResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api-version": "3.0",
			"to":          to,
			"from":        from,
		}).
		SetBody([]translateItem{{Text: text}}).
		SetResult(&out).
		Post("/translate")
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("translate api: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out) == 0 || len(out[0].Translations) == 0 {
		return "", nil
	}
	return out[0].Translations[0].Text, nil
}

// RevertCase re-applies the casing of the original text onto its
// lower-cased translation, token by token. Tokens the translation
// added beyond the original stay lower-case.
func RevertCase(original, translated string) string {
	originalTokens := splitTokens(original)
	translatedTokens := splitTokens(translated)

	var b strings.Builder
	b.Grow(len(translated))
	for i, token := range translatedTokens {
		var origToken string
		if i < len(originalTokens) {
			origToken = originalTokens[i]
		}

		if isUpperWord(origToken) {
			b.WriteString(strings.ToUpper(token))
			continue
		}

		origRunes := []rune(origToken)
		for j, r := range []rune(token) {
			if j < len(origRunes) && unicode.IsUpper(origRunes[j]) {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// splitTokens breaks text into alternating word and non-word runs, so
// the original and translation line up on word boundaries.
func splitTokens(s string) []string {
	var tokens []string
	var current strings.Builder
	var inWord bool

	for i, r := range s {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
		if i > 0 && isWord != inWord {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		current.WriteRune(r)
		inWord = isWord
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// isUpperWord reports whether a token is entirely upper-case letters,
// an acronym whose translation should be upper-cased wholesale.
func isUpperWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
