package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
	apperrors "github.com/gobill/billing-service/pkg/errors"
)

// CancelRequest cancels or shrinks the account's subscription. A nonzero
// Quantity below the current quantity reduces seats instead of cancelling.
type CancelRequest struct {
	AccountID uuid.UUID
	Quantity  int64
}

// Cancel ends the account's current subscription at the period end, or
// reduces its quantity when the request asks for fewer seats than held. The
// row stays active until the provider's deletion webhook arrives; only
// is-cancelled flips immediately.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*models.Subscription, error) {
	account, err := s.getAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsCustomer() {
		return nil, apperrors.NewValidationError(CodeAccountNotCustomer,
			"the account has no billing customer")
	}

	if account.PlanID != nil {
		plan, err := s.plans.GetByID(ctx, s.db, *account.PlanID)
		if err != nil {
			return nil, err
		}
		if plan != nil && !plan.IsPayable() {
			return nil, apperrors.NewValidationError(CodePlanNotPayable,
				"the account is not on a paid plan")
		}
	}

	current, err := s.subscriptions.GetCurrent(ctx, s.db, account.ID)
	if err != nil {
		return nil, err
	}
	if current == nil || !current.Active {
		return nil, apperrors.NewValidationError(CodeNoActiveSubscription,
			"the account has no active subscription")
	}
	if current.Cancelled {
		return nil, apperrors.NewValidationError(CodeAlreadyCancelled,
			"the subscription is already scheduled for cancellation")
	}

	if req.Quantity > 0 && req.Quantity < current.Quantity {
		return s.reduceQuantity(ctx, current, req.Quantity)
	}
	return s.cancelAtPeriodEnd(ctx, current)
}

func (s *Service) reduceQuantity(ctx context.Context, current *models.Subscription, quantity int64) (*models.Subscription, error) {
	remote, err := s.gateway.UpdateSubscription(ctx, current.SubscriptionRef, ports.SubscriptionUpdateRequest{
		Quantity: &quantity,
	})
	if err != nil {
		return nil, err
	}

	current.Quantity = remote.Quantity
	if current.Quantity == 0 {
		current.Quantity = quantity
	}
	current.Status = remote.Status
	if !remote.PeriodStart.IsZero() {
		current.PeriodStart = remote.PeriodStart
	}
	if !remote.PeriodEnd.IsZero() {
		current.PeriodEnd = remote.PeriodEnd
	}

	err = s.txm.WithTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		return s.subscriptions.Update(ctx, tx, current)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription quantity reduced",
		ports.String("subscription", current.SubscriptionRef),
		ports.Int64("quantity", current.Quantity))
	return current, nil
}

func (s *Service) cancelAtPeriodEnd(ctx context.Context, current *models.Subscription) (*models.Subscription, error) {
	remote, err := s.gateway.CancelSubscriptionAtPeriodEnd(ctx, current.SubscriptionRef)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	current.Cancelled = true
	current.CancelledAt = &now
	current.Status = remote.Status
	// Active until the deletion webhook deactivates the row.

	err = s.txm.WithTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		return s.subscriptions.Update(ctx, tx, current)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription cancellation scheduled",
		ports.String("subscription", current.SubscriptionRef))
	return current, nil
}
