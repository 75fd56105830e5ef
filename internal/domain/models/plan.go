package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanInterval represents the billing interval unit of a plan
type PlanInterval string

const (
	IntervalDay   PlanInterval = "day"
	IntervalWeek  PlanInterval = "week"
	IntervalMonth PlanInterval = "month"
	IntervalYear  PlanInterval = "year"
)

// Plan is a catalog entry. Code is the remote provider's plan id. Level is an
// ordinal used for upgrade/downgrade comparisons (0 = free, non-payable) and
// is unique across active plans. MaxQuantity 0 means unlimited. Amount is in
// the currency's minor unit.
type Plan struct {
	ID            uuid.UUID
	Code          string
	Name          string
	Description   string
	Level         int
	Amount        int64
	Currency      string
	MaxQuantity   int64
	TrialDays     int
	Interval      PlanInterval
	IntervalCount int
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsPayable reports whether the plan can be subscribed to for money.
func (p *Plan) IsPayable() bool {
	return p.Level > 0 && p.Amount > 0
}
