// Package lifecycle implements the user-initiated billing operations:
// customer creation, subscription create/upgrade/cancel and direct charges.
// Operations call the remote provider synchronously and update local rows
// optimistically; webhook reconciliation corrects any divergence later.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
	apperrors "github.com/gobill/billing-service/pkg/errors"
)

// Validation codes surfaced to callers on business-rule violations.
const (
	CodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	CodeAccountNotCustomer   = "ACCOUNT_NOT_CUSTOMER"
	CodePlanNotFound         = "PLAN_NOT_FOUND"
	CodePlanNotPayable       = "PLAN_NOT_PAYABLE"
	CodeQuantityExceeded     = "PLAN_QUANTITY_EXCEEDED"
	CodeSubscriptionSame     = "SUBSCRIPTION_UNCHANGED"
	CodeLevelDecrease        = "PLAN_LEVEL_DECREASE"
	CodeNoActiveSubscription = "SUBSCRIPTION_NOT_ACTIVE"
	CodeAlreadyCancelled     = "SUBSCRIPTION_ALREADY_CANCELLED"
	CodeAmountInvalid        = "CHARGE_AMOUNT_INVALID"
)

// Service exposes the billing lifecycle operations.
type Service struct {
	db            ports.DBTX
	txm           ports.TransactionManager
	accounts      ports.AccountRepository
	plans         ports.PlanRepository
	subscriptions ports.SubscriptionRepository
	charges       ports.ChargeRepository
	gateway       ports.PaymentGateway
	logger        ports.Logger
	now           func() time.Time
}

func NewService(
	db ports.DBTX,
	txm ports.TransactionManager,
	accounts ports.AccountRepository,
	plans ports.PlanRepository,
	subscriptions ports.SubscriptionRepository,
	charges ports.ChargeRepository,
	gateway ports.PaymentGateway,
	logger ports.Logger,
) *Service {
	return &Service{
		db:            db,
		txm:           txm,
		accounts:      accounts,
		plans:         plans,
		subscriptions: subscriptions,
		charges:       charges,
		gateway:       gateway,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Service) getAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.NewValidationError(CodeAccountNotFound, "account does not exist")
	}
	return account, nil
}

// EnsureCustomer guarantees the account has a remote customer, creating one
// when absent. With force set a new remote customer is created even when one
// exists; the old remote customer is left in place, only the reference moves.
func (s *Service) EnsureCustomer(ctx context.Context, accountID uuid.UUID, force bool) (*models.Account, error) {
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCustomer(ctx, account, "", force); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) ensureCustomer(ctx context.Context, account *models.Account, source string, force bool) error {
	if account.IsCustomer() && !force {
		if source != "" {
			if err := s.gateway.UpdateCustomerSource(ctx, account.Customer(), source); err != nil {
				return err
			}
		}
		return nil
	}

	customer, err := s.gateway.CreateCustomer(ctx, ports.CreateCustomerRequest{
		Email:  account.Email,
		Source: source,
		Metadata: map[string]string{
			"account_id": account.ID.String(),
		},
	})
	if err != nil {
		return err
	}

	account.CustomerRef = &customer.ID
	if err := s.accounts.Update(ctx, s.db, account); err != nil {
		return err
	}
	s.logger.Info("remote customer attached",
		ports.String("account_id", account.ID.String()),
		ports.String("customer", customer.ID),
		ports.Bool("forced", force))
	return nil
}
