package models

import (
	"encoding/json"
	"time"
)

// Webhook event names the reconciliation engine subscribes to.
const (
	EventChargeSucceeded     = "charge.succeeded"
	EventChargeCaptured      = "charge.captured"
	EventChargeFailed        = "charge.failed"
	EventChargeRefunded      = "charge.refunded"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Event is the provider-signed webhook envelope as delivered to the webhook
// endpoint. Data.Object carries the embedded provider object verbatim; the
// resolver decides what, if anything, to fetch from it.
type Event struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Created  int64           `json:"created"`
	Livemode bool            `json:"livemode"`
	Data     EventData       `json:"data"`
	Request  json.RawMessage `json:"request"`
}

// EventData wraps the embedded object of a webhook event
type EventData struct {
	Object json.RawMessage `json:"object"`
}

// CreatedAt returns the event creation time.
func (e *Event) CreatedAt() time.Time {
	return time.Unix(e.Created, 0)
}
