package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/gobill/billing-service/internal/domain/models"
)

// Lookup methods return (nil, nil) when no row matches: "not found" is a
// reconciliation no-op, not an error, so it is not conflated with real
// database failures.

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*models.Account, error)
	GetByCustomerRef(ctx context.Context, db DBTX, customerRef string) (*models.Account, error)
	Update(ctx context.Context, tx DBTX, account *models.Account) error
}

// PlanRepository defines the interface for plan persistence
type PlanRepository interface {
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*models.Plan, error)
	GetByCode(ctx context.Context, db DBTX, code string) (*models.Plan, error)
	List(ctx context.Context, db DBTX) ([]*models.Plan, error)
	ListActive(ctx context.Context, db DBTX) ([]*models.Plan, error)
	Update(ctx context.Context, tx DBTX, plan *models.Plan) error
}

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	Create(ctx context.Context, tx DBTX, sub *models.Subscription) error
	Update(ctx context.Context, tx DBTX, sub *models.Subscription) error

	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*models.Subscription, error)

	// GetByRef looks a subscription up by its remote reference scoped to an
	// account, the upsert idempotency key.
	GetByRef(ctx context.Context, db DBTX, accountID uuid.UUID, ref string) (*models.Subscription, error)

	// GetCurrent returns the account's current subscription: the most recent
	// active row whose period has not ended, or nil.
	GetCurrent(ctx context.Context, db DBTX, accountID uuid.UUID) (*models.Subscription, error)

	// HasAnyForAccount reports whether the account ever held a subscription,
	// historical rows included.
	HasAnyForAccount(ctx context.Context, db DBTX, accountID uuid.UUID) (bool, error)
}

// ChargeRepository defines the interface for charge persistence
type ChargeRepository interface {
	Create(ctx context.Context, tx DBTX, charge *models.Charge) error
	Update(ctx context.Context, tx DBTX, charge *models.Charge) error

	// GetByRef looks a charge up by its remote reference scoped to an
	// account, the upsert idempotency key.
	GetByRef(ctx context.Context, db DBTX, accountID uuid.UUID, ref string) (*models.Charge, error)

	ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID) ([]*models.Charge, error)
}
