package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// ContextKey is the type used for values attached to request contexts so
// lookups cannot collide with string keys from other packages
type ContextKey string

// Context keys
const (
	RequestIDKey ContextKey = "request_id"
)

// AI pipeline constants
const (
	// MaxQualificationInteractions is the number of most recent lead
	// interactions embedded into a qualification prompt.
	MaxQualificationInteractions = 20

	// CampaignMetricsCacheTTL bounds how long aggregated campaign metrics
	// stay in Redis before being recomputed.
	CampaignMetricsCacheTTL = 5 * time.Minute
)
