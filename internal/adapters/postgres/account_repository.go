package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
)

// AccountRepository persists accounts.
type AccountRepository struct{}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{}
}

const accountColumns = `id, email, customer_ref, plan_id, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.CustomerRef, &a.PlanID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*models.Account, error) {
	row := db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *AccountRepository) GetByCustomerRef(ctx context.Context, db ports.DBTX, customerRef string) (*models.Account, error) {
	row := db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE customer_ref = $1`, customerRef)
	return scanAccount(row)
}

func (r *AccountRepository) Update(ctx context.Context, tx ports.DBTX, account *models.Account) error {
	_, err := tx.Exec(ctx, `
		UPDATE accounts
		SET email = $2, customer_ref = $3, plan_id = $4, updated_at = now()
		WHERE id = $1`,
		account.ID, account.Email, account.CustomerRef, account.PlanID)
	return err
}
