// Package timeouts provides centralized timeout values for handler
// operations.
//
// These are used with context.WithTimeout for database and upstream-service
// calls inside HTTP handlers. Central values keep the app consistent and
// easy to retune.
//
// Guidelines:
//   - Ping: health checks and connectivity verification
//   - Short: single-document reads or lookups
//   - Medium: list queries, moderate writes, sign-in resolution
//   - Upstream: completion/search/translation calls to managed services
package timeouts

import "time"

const (
	DefaultPing     = 2 * time.Second
	DefaultShort    = 5 * time.Second
	DefaultMedium   = 10 * time.Second
	DefaultUpstream = 60 * time.Second
)

// Ping returns the timeout for health checks.
func Ping() time.Duration { return DefaultPing }

// Short returns the timeout for simple operations like single-document reads.
func Short() time.Duration { return DefaultShort }

// Medium returns the timeout for list queries and multi-step writes.
func Medium() time.Duration { return DefaultMedium }

// Upstream returns the timeout for calls to external managed services
// (completion API, vector search, translator, content safety).
func Upstream() time.Duration { return DefaultUpstream }
