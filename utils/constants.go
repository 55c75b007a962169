package utils

import (
	"time"

	"github.com/google/uuid"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Deal desk constants
const (
	// USDCurrency is the currency all deal amounts are denominated in
	USDCurrency = "USD"

	// DepartmentsCacheKey is the redis key for the department list cache
	DepartmentsCacheKey = "approval_departments"

	// DepartmentsCacheTTL bounds staleness of the department list cache
	DepartmentsCacheTTL = 10 * time.Minute
)

// CtxKey is the type for request-scoped context values set by handlers.
type CtxKey string

// Request-scoped context keys for observability
const (
	RequestIDKey  CtxKey = "request_id"
	UserAgentKey  CtxKey = "user_agent"
	IPAddressKey  CtxKey = "ip_address"
	EndpointKey   CtxKey = "endpoint"
	TimeoutKey    CtxKey = "timeout"
	CancelFuncKey CtxKey = "cancel_func"
)

// ParseUUID parses a UUID string and returns the parsed value
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
