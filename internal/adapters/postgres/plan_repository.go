package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
)

// PlanRepository persists catalog plans.
type PlanRepository struct{}

var _ ports.PlanRepository = (*PlanRepository)(nil)

func NewPlanRepository() *PlanRepository {
	return &PlanRepository{}
}

const planColumns = `id, code, name, description, level, amount, currency,
	max_quantity, trial_days, billing_interval, interval_count, is_active,
	created_at, updated_at`

func scanPlan(row pgx.Row) (*models.Plan, error) {
	var p models.Plan
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Level, &p.Amount,
		&p.Currency, &p.MaxQuantity, &p.TrialDays, &p.Interval, &p.IntervalCount,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*models.Plan, error) {
	row := db.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	return scanPlan(row)
}

func (r *PlanRepository) GetByCode(ctx context.Context, db ports.DBTX, code string) (*models.Plan, error) {
	row := db.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE code = $1`, code)
	return scanPlan(row)
}

func (r *PlanRepository) List(ctx context.Context, db ports.DBTX) ([]*models.Plan, error) {
	return r.list(ctx, db, `SELECT `+planColumns+` FROM plans ORDER BY level`)
}

func (r *PlanRepository) ListActive(ctx context.Context, db ports.DBTX) ([]*models.Plan, error) {
	return r.list(ctx, db, `SELECT `+planColumns+` FROM plans WHERE is_active ORDER BY level`)
}

func (r *PlanRepository) list(ctx context.Context, db ports.DBTX, sql string) ([]*models.Plan, error) {
	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) Update(ctx context.Context, tx ports.DBTX, plan *models.Plan) error {
	_, err := tx.Exec(ctx, `
		UPDATE plans
		SET name = $2, description = $3, level = $4, amount = $5, currency = $6,
			max_quantity = $7, trial_days = $8, billing_interval = $9,
			interval_count = $10, is_active = $11, updated_at = now()
		WHERE id = $1`,
		plan.ID, plan.Name, plan.Description, plan.Level, plan.Amount,
		plan.Currency, plan.MaxQuantity, plan.TrialDays, plan.Interval,
		plan.IntervalCount, plan.Active)
	return err
}
