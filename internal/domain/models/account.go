package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the local owner of subscriptions and charges. CustomerRef holds
// the remote provider's customer id; its presence is what makes the account a
// paying customer. It is set once on first customer creation and only replaced
// by an explicit force-recreate, never cleared automatically.
type Account struct {
	ID          uuid.UUID
	Email       string
	CustomerRef *string
	PlanID      *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsCustomer reports whether the account has a remote customer attached.
func (a *Account) IsCustomer() bool {
	return a.CustomerRef != nil && *a.CustomerRef != ""
}

// Customer returns the remote customer reference, or "" when absent.
func (a *Account) Customer() string {
	if a.CustomerRef == nil {
		return ""
	}
	return *a.CustomerRef
}
