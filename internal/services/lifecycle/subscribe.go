package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
	apperrors "github.com/gobill/billing-service/pkg/errors"
)

// SubscribeRequest asks for the account to be put on a plan. Source is an
// optional payment token; Coupon an optional discount code. Quantity defaults
// to 1.
type SubscribeRequest struct {
	AccountID uuid.UUID
	PlanCode  string
	Quantity  int64
	Source    string
	Coupon    string
}

// Subscribe creates the account's subscription, or upgrades the current one
// to the target plan. Moving to a plan of a lower level is rejected; the
// cancel path handles downgrades. Local state is written optimistically after
// the remote call succeeds; webhook reconciliation is the backstop when the
// remote outcome later differs.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) (*models.Subscription, error) {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	account, err := s.getAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.GetByCode(ctx, s.db, req.PlanCode)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apperrors.NewValidationError(CodePlanNotFound,
			fmt.Sprintf("plan %s does not exist", req.PlanCode))
	}
	if !plan.IsPayable() {
		return nil, apperrors.NewValidationError(CodePlanNotPayable,
			fmt.Sprintf("plan %s cannot be subscribed to", plan.Code))
	}
	if plan.MaxQuantity > 0 && quantity > plan.MaxQuantity {
		return nil, apperrors.NewValidationError(CodeQuantityExceeded,
			fmt.Sprintf("plan %s allows at most %d seats", plan.Code, plan.MaxQuantity))
	}

	current, err := s.subscriptions.GetCurrent(ctx, s.db, account.ID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		if current.PlanID == plan.ID && current.Quantity == quantity {
			return nil, apperrors.NewValidationError(CodeSubscriptionSame,
				"the account already holds this plan at this quantity")
		}
		currentPlan, err := s.plans.GetByID(ctx, s.db, current.PlanID)
		if err != nil {
			return nil, err
		}
		if currentPlan != nil && plan.Level < currentPlan.Level {
			return nil, apperrors.NewValidationError(CodeLevelDecrease,
				fmt.Sprintf("plan %s is below the current plan, cancel instead", plan.Code))
		}
	}

	if err := s.ensureCustomer(ctx, account, req.Source, false); err != nil {
		return nil, err
	}

	if current == nil {
		return s.createSubscription(ctx, account, plan, quantity, req)
	}
	return s.upgradeSubscription(ctx, account, current, plan, quantity, req)
}

func (s *Service) createSubscription(ctx context.Context, account *models.Account, plan *models.Plan, quantity int64, req SubscribeRequest) (*models.Subscription, error) {
	create := ports.SubscriptionCreateRequest{
		CustomerID: account.Customer(),
		PlanCode:   plan.Code,
		Quantity:   quantity,
		Source:     req.Source,
		Coupon:     req.Coupon,
	}

	// The trial applies once per account, on its first paid plan ever.
	if plan.TrialDays > 0 {
		hadAny, err := s.subscriptions.HasAnyForAccount(ctx, s.db, account.ID)
		if err != nil {
			return nil, err
		}
		if !hadAny {
			trialEnd := s.now().UTC().AddDate(0, 0, plan.TrialDays)
			create.TrialEnd = &trialEnd
		}
	}

	remote, err := s.gateway.CreateSubscription(ctx, create)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sub := &models.Subscription{
		ID:              uuid.New(),
		AccountID:       account.ID,
		PlanID:          plan.ID,
		SubscriptionRef: remote.ID,
		Status:          remote.Status,
		Quantity:        remote.Quantity,
		Active:          models.IsActiveStatus(remote.Status),
		PeriodStart:     remote.PeriodStart,
		PeriodEnd:       remote.PeriodEnd,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if sub.Quantity == 0 {
		sub.Quantity = quantity
	}

	err = s.txm.WithTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		if err := s.subscriptions.Create(ctx, tx, sub); err != nil {
			return err
		}
		return s.assignPlan(ctx, tx, account, plan)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription created",
		ports.String("account_id", account.ID.String()),
		ports.String("plan", plan.Code),
		ports.String("subscription", remote.ID),
		ports.String("status", remote.Status))
	return sub, nil
}

func (s *Service) upgradeSubscription(ctx context.Context, account *models.Account, current *models.Subscription, plan *models.Plan, quantity int64, req SubscribeRequest) (*models.Subscription, error) {
	remote, err := s.gateway.UpdateSubscription(ctx, current.SubscriptionRef, ports.SubscriptionUpdateRequest{
		PlanCode: plan.Code,
		Quantity: &quantity,
		Source:   req.Source,
		Coupon:   req.Coupon,
	})
	if err != nil {
		return nil, err
	}

	current.PlanID = plan.ID
	current.Status = remote.Status
	current.Quantity = remote.Quantity
	if current.Quantity == 0 {
		current.Quantity = quantity
	}
	current.Active = models.IsActiveStatus(remote.Status)
	current.Cancelled = remote.CancelAtPeriodEnd
	if !remote.PeriodStart.IsZero() {
		current.PeriodStart = remote.PeriodStart
	}
	if !remote.PeriodEnd.IsZero() {
		current.PeriodEnd = remote.PeriodEnd
	}

	err = s.txm.WithTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		if err := s.subscriptions.Update(ctx, tx, current); err != nil {
			return err
		}
		return s.assignPlan(ctx, tx, account, plan)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription upgraded",
		ports.String("account_id", account.ID.String()),
		ports.String("plan", plan.Code),
		ports.Int64("quantity", current.Quantity))
	return current, nil
}

func (s *Service) assignPlan(ctx context.Context, tx ports.DBTX, account *models.Account, plan *models.Plan) error {
	if account.PlanID != nil && *account.PlanID == plan.ID {
		return nil
	}
	planID := plan.ID
	account.PlanID = &planID
	return s.accounts.Update(ctx, tx, account)
}
