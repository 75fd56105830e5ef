package reconcile

import (
	"context"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
)

// HandleSubscription projects a subscription webhook event onto the tracked
// local row. The remote state overwrites the local row wholesale: status,
// quantity and the billing period all come from the provider. A deleted
// subscription is deactivated in place, and a canceled subscription moves the
// account onto the configured default plan.
func (e *Engine) HandleSubscription(ctx context.Context, eventName string, entity *ports.Entity) error {
	if entity == nil || entity.Subscription == nil {
		return nil
	}
	remote := entity.Subscription

	if remote.CustomerID == "" {
		e.logger.Debug("subscription without customer, skipping",
			ports.String("subscription", remote.ID))
		return nil
	}
	account, err := e.accounts.GetByCustomerRef(ctx, e.db, remote.CustomerID)
	if err != nil {
		return err
	}
	if account == nil {
		e.logger.Debug("subscription for unknown customer, skipping",
			ports.String("subscription", remote.ID),
			ports.String("customer", remote.CustomerID))
		return nil
	}

	var plan *models.Plan
	if remote.PlanCode != "" {
		if plan, err = e.plans.GetByCode(ctx, e.db, remote.PlanCode); err != nil {
			return err
		}
	}

	deleted := eventName == models.EventSubscriptionDeleted

	return e.txm.WithTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		sub, err := e.subscriptions.GetByRef(ctx, tx, account.ID, remote.ID)
		if err != nil {
			return err
		}
		if sub == nil {
			// A subscription this system never created, e.g. one made in
			// the provider dashboard. Not ours to track.
			e.logger.Debug("untracked subscription, skipping",
				ports.String("subscription", remote.ID))
			return nil
		}

		sub.Status = remote.Status
		sub.Quantity = remote.Quantity
		if !remote.PeriodStart.IsZero() {
			sub.PeriodStart = remote.PeriodStart
		}
		if !remote.PeriodEnd.IsZero() {
			sub.PeriodEnd = remote.PeriodEnd
		}
		if plan != nil {
			sub.PlanID = plan.ID
		}

		now := e.now().UTC()
		cancelled := remote.CancelAtPeriodEnd || deleted || remote.Status == models.SubStatusCanceled
		if cancelled && !sub.Cancelled {
			sub.CancelledAt = &now
		}
		sub.Cancelled = cancelled

		if deleted {
			sub.Active = false
			if sub.DeactivatedAt == nil {
				sub.DeactivatedAt = &now
			}
		} else {
			sub.Active = models.IsActiveStatus(remote.Status)
		}

		if err := e.subscriptions.Update(ctx, tx, sub); err != nil {
			return err
		}

		if remote.Status == models.SubStatusCanceled || deleted {
			return e.reassignDefaultPlan(ctx, tx, account)
		}
		return nil
	})
}

// reassignDefaultPlan moves the account to the configured default plan after
// its subscription ends. With no default configured the account keeps its
// current plan reference.
func (e *Engine) reassignDefaultPlan(ctx context.Context, tx ports.DBTX, account *models.Account) error {
	if e.cfg.DefaultPlanCode == "" {
		return nil
	}
	def, err := e.plans.GetByCode(ctx, tx, e.cfg.DefaultPlanCode)
	if err != nil {
		return err
	}
	if def == nil {
		e.logger.Warn("default plan not found, leaving account plan untouched",
			ports.String("plan_code", e.cfg.DefaultPlanCode))
		return nil
	}
	if account.PlanID != nil && *account.PlanID == def.ID {
		return nil
	}
	planID := def.ID
	account.PlanID = &planID
	return e.accounts.Update(ctx, tx, account)
}
