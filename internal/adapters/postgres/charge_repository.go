package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
)

// ChargeRepository persists charges. The schema enforces uniqueness of
// (charge_ref, account_id), the idempotency key for webhook-driven upserts.
// The sequence column is database-assigned and backs local invoice numbers.
type ChargeRepository struct{}

var _ ports.ChargeRepository = (*ChargeRepository)(nil)

func NewChargeRepository() *ChargeRepository {
	return &ChargeRepository{}
}

const chargeColumns = `id, account_id, subscription_id, charge_ref, invoice_ref,
	amount, amount_refunded, currency, status, charged_at, refunded_at,
	failed_at, created_at, updated_at, sequence`

func scanCharge(row pgx.Row) (*models.Charge, error) {
	var c models.Charge
	err := row.Scan(&c.ID, &c.AccountID, &c.SubscriptionID, &c.ChargeRef,
		&c.InvoiceRef, &c.Amount, &c.AmountRefunded, &c.Currency, &c.Status,
		&c.ChargedAt, &c.RefundedAt, &c.FailedAt, &c.CreatedAt, &c.UpdatedAt,
		&c.Sequence)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *ChargeRepository) Create(ctx context.Context, tx ports.DBTX, charge *models.Charge) error {
	return tx.QueryRow(ctx, `
		INSERT INTO charges (id, account_id, subscription_id, charge_ref,
			invoice_ref, amount, amount_refunded, currency, status,
			charged_at, refunded_at, failed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING sequence`,
		charge.ID, charge.AccountID, charge.SubscriptionID, charge.ChargeRef,
		charge.InvoiceRef, charge.Amount, charge.AmountRefunded, charge.Currency,
		charge.Status, charge.ChargedAt, charge.RefundedAt, charge.FailedAt).
		Scan(&charge.Sequence)
}

func (r *ChargeRepository) Update(ctx context.Context, tx ports.DBTX, charge *models.Charge) error {
	_, err := tx.Exec(ctx, `
		UPDATE charges
		SET subscription_id = $2, invoice_ref = $3, amount = $4,
			amount_refunded = $5, currency = $6, status = $7, charged_at = $8,
			refunded_at = $9, failed_at = $10, updated_at = now()
		WHERE id = $1`,
		charge.ID, charge.SubscriptionID, charge.InvoiceRef, charge.Amount,
		charge.AmountRefunded, charge.Currency, charge.Status, charge.ChargedAt,
		charge.RefundedAt, charge.FailedAt)
	return err
}

func (r *ChargeRepository) GetByRef(ctx context.Context, db ports.DBTX, accountID uuid.UUID, ref string) (*models.Charge, error) {
	row := db.QueryRow(ctx,
		`SELECT `+chargeColumns+` FROM charges
		 WHERE account_id = $1 AND charge_ref = $2`, accountID, ref)
	return scanCharge(row)
}

func (r *ChargeRepository) ListByAccount(ctx context.Context, db ports.DBTX, accountID uuid.UUID) ([]*models.Charge, error) {
	rows, err := db.Query(ctx,
		`SELECT `+chargeColumns+` FROM charges
		 WHERE account_id = $1
		 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []*models.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}
