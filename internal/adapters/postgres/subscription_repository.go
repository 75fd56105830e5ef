package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
)

// SubscriptionRepository persists subscriptions. The schema enforces
// uniqueness of (subscription_ref, account_id); concurrent upserts of the
// same remote subscription cannot create duplicate rows.
type SubscriptionRepository struct{}

var _ ports.SubscriptionRepository = (*SubscriptionRepository)(nil)

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{}
}

const subscriptionColumns = `id, account_id, plan_id, subscription_ref, status,
	quantity, is_active, is_cancelled, period_start, period_end,
	cancelled_at, deactivated_at, charged_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(&s.ID, &s.AccountID, &s.PlanID, &s.SubscriptionRef, &s.Status,
		&s.Quantity, &s.Active, &s.Cancelled, &s.PeriodStart, &s.PeriodEnd,
		&s.CancelledAt, &s.DeactivatedAt, &s.ChargedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) Create(ctx context.Context, tx ports.DBTX, sub *models.Subscription) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO subscriptions (id, account_id, plan_id, subscription_ref,
			status, quantity, is_active, is_cancelled, period_start, period_end,
			cancelled_at, deactivated_at, charged_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())`,
		sub.ID, sub.AccountID, sub.PlanID, sub.SubscriptionRef, sub.Status,
		sub.Quantity, sub.Active, sub.Cancelled, sub.PeriodStart, sub.PeriodEnd,
		sub.CancelledAt, sub.DeactivatedAt, sub.ChargedAt)
	return err
}

func (r *SubscriptionRepository) Update(ctx context.Context, tx ports.DBTX, sub *models.Subscription) error {
	_, err := tx.Exec(ctx, `
		UPDATE subscriptions
		SET plan_id = $2, status = $3, quantity = $4, is_active = $5,
			is_cancelled = $6, period_start = $7, period_end = $8,
			cancelled_at = $9, deactivated_at = $10, charged_at = $11,
			updated_at = now()
		WHERE id = $1`,
		sub.ID, sub.PlanID, sub.Status, sub.Quantity, sub.Active, sub.Cancelled,
		sub.PeriodStart, sub.PeriodEnd, sub.CancelledAt, sub.DeactivatedAt,
		sub.ChargedAt)
	return err
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*models.Subscription, error) {
	row := db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	return scanSubscription(row)
}

func (r *SubscriptionRepository) GetByRef(ctx context.Context, db ports.DBTX, accountID uuid.UUID, ref string) (*models.Subscription, error) {
	row := db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE account_id = $1 AND subscription_ref = $2`, accountID, ref)
	return scanSubscription(row)
}

func (r *SubscriptionRepository) GetCurrent(ctx context.Context, db ports.DBTX, accountID uuid.UUID) (*models.Subscription, error) {
	row := db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE account_id = $1 AND is_active AND period_end > now()
		 ORDER BY created_at DESC
		 LIMIT 1`, accountID)
	return scanSubscription(row)
}

func (r *SubscriptionRepository) HasAnyForAccount(ctx context.Context, db ports.DBTX, accountID uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE account_id = $1)`,
		accountID).Scan(&exists)
	return exists, err
}
