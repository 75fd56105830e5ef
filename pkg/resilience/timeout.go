package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the application's timeout hierarchy
//
// Timeout Hierarchy (from outermost to innermost):
//
//	HTTP Handler (30s)
//	  ↓
//	Webhook processing (25s)
//	  ↓
//	Stripe API call (15s)
//	  ↓
//	Database query (5s)
//
// Each layer finishes before its parent times out, so a slow provider call
// never leaves a half-acknowledged delivery behind.
type TimeoutConfig struct {
	HTTPHandler time.Duration // Overall request timeout
	Webhook     time.Duration // One webhook delivery end to end
	Lifecycle   time.Duration // One lifecycle operation end to end
	GatewayAPI  time.Duration // Single Stripe API call
	PlanSync    time.Duration // Full plan catalog sync pass
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 30 * time.Second,
		Webhook:     25 * time.Second,
		Lifecycle:   25 * time.Second,
		GatewayAPI:  15 * time.Second,
		PlanSync:    2 * time.Minute,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 5 * time.Second,
		Webhook:     4 * time.Second,
		Lifecycle:   4 * time.Second,
		GatewayAPI:  2 * time.Second,
		PlanSync:    10 * time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// WebhookContext creates a context for processing one webhook delivery
func (tc *TimeoutConfig) WebhookContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Webhook)
}

// LifecycleContext creates a context for one lifecycle operation
func (tc *TimeoutConfig) LifecycleContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Lifecycle)
}

// PlanSyncContext creates a context for a full plan sync pass
func (tc *TimeoutConfig) PlanSyncContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.PlanSync)
}
