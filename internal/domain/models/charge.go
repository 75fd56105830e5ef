package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChargeStatus represents the state of a payment attempt
type ChargeStatus string

const (
	ChargePending   ChargeStatus = "pending"
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargeFailed    ChargeStatus = "failed"
	ChargeRefunded  ChargeStatus = "refunded"
)

// Charge is one payment attempt. (ChargeRef, AccountID) is unique and is the
// idempotency key for webhook-driven upserts. A refund updates the row in
// place; a second row is never created. SubscriptionID may outlive the
// subscription it points at (set null on delete) since financial history must
// survive plan changes.
type Charge struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	SubscriptionID *uuid.UUID
	ChargeRef      string
	InvoiceRef     *string
	Amount         int64
	AmountRefunded *int64
	Currency       string
	Status         ChargeStatus
	ChargedAt      *time.Time
	RefundedAt     *time.Time
	FailedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Sequence       int64
}

// InvoiceNumber renders the local zero-padded invoice number for the charge,
// e.g. prefix "S", length 6, sequence 12 -> "S000012".
func (c *Charge) InvoiceNumber(prefix string, length int) string {
	seq := strconv.FormatInt(c.Sequence, 10)
	var b strings.Builder
	b.WriteString(prefix)
	for i := len(seq); i < length; i++ {
		b.WriteByte('0')
	}
	b.WriteString(seq)
	return b.String()
}
