package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses mirror the remote provider's status strings.
const (
	SubStatusTrialing = "trialing"
	SubStatusActive   = "active"
	SubStatusPastDue  = "past_due"
	SubStatusCanceled = "canceled"
	SubStatusUnpaid   = "unpaid"
)

// IsActiveStatus reports whether a remote status string counts as active.
func IsActiveStatus(status string) bool {
	return status == SubStatusTrialing || status == SubStatusActive
}

// Subscription is one billing relationship between an Account and a Plan.
// SubscriptionRef is the remote provider's subscription id, unique per
// account. Rows are never deleted: a terminal subscription is deactivated in
// place and a new row is created for the next billing relationship.
type Subscription struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	PlanID          uuid.UUID
	SubscriptionRef string
	Status          string
	Quantity        int64
	Active          bool
	Cancelled       bool
	PeriodStart     time.Time
	PeriodEnd       time.Time
	CancelledAt     *time.Time
	DeactivatedAt   *time.Time
	ChargedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
