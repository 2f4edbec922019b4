package admission

import (
	"context"
	"fmt"
	"time"
)

// Rule is a fixed-window ceiling applied per identity.
type Rule struct {
	Name    string
	Limit   int
	Window  time.Duration
	Message string
}

// Default rules. Limits and windows are overridden from configuration.
var (
	ChatRule = Rule{
		Name:    "chat",
		Limit:   30,
		Window:  time.Minute,
		Message: "Too many requests. Please wait a moment before trying again.",
	}
	GlobalRule = Rule{
		Name:    "global",
		Limit:   100,
		Window:  time.Minute,
		Message: "Rate limit exceeded. Please slow down.",
	}
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	Count   int64
	// RetryAfter is the remaining window when the request was rejected.
	RetryAfter time.Duration
	// FailOpen is set when the counting backend could not be consulted.
	FailOpen bool
}

// Limiter counts requests per identity. Implementations allow the request when their
// backend is unavailable.
type Limiter interface {
	Allow(ctx context.Context, rule Rule, identity string) Decision
}

// Key returns the counter key for rule and identity.
func Key(rule Rule, identity string) string {
	return fmt.Sprintf("ratelimit:%s:%s", rule.Name, identity)
}

// ChatIdentity combines the client address and session, as chat limits are per conversation.
func ChatIdentity(clientIP, sessionID string) string {
	return clientIP + "-" + sessionID
}

// AllowAll admits every request.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, Rule, string) Decision {
	return Decision{Allowed: true}
}
