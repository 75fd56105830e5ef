package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
	apperrors "github.com/gobill/billing-service/pkg/errors"
)

// ChargeRequest creates a one-off charge against the account's customer, or
// against a raw payment token when the account has no customer yet. Amount is
// in the currency's minor unit.
type ChargeRequest struct {
	AccountID    uuid.UUID
	Amount       int64
	Currency     string
	Description  string
	Source       string
	ReceiptEmail string
}

// CreateCharge charges the account synchronously and records the local row.
// Webhook redelivery of the resulting charge event converges on the same row
// through the (charge ref, account) key.
func (s *Service) CreateCharge(ctx context.Context, req ChargeRequest) (*models.Charge, error) {
	if req.Amount <= 0 {
		return nil, apperrors.NewValidationError(CodeAmountInvalid,
			"charge amount must be positive")
	}

	account, err := s.getAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsCustomer() && req.Source == "" {
		return nil, apperrors.NewValidationError(CodeAccountNotCustomer,
			"the account has no billing customer and no payment source was given")
	}

	remote, err := s.gateway.CreateCharge(ctx, ports.ChargeCreateRequest{
		CustomerID:   account.Customer(),
		Source:       req.Source,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Description:  req.Description,
		ReceiptEmail: req.ReceiptEmail,
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	charge := &models.Charge{
		ID:        uuid.New(),
		AccountID: account.ID,
		ChargeRef: remote.ID,
		Amount:    remote.Amount,
		Currency:  remote.Currency,
		Status:    chargeStatus(remote),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if remote.InvoiceID != "" {
		charge.InvoiceRef = &remote.InvoiceID
	}
	if charge.Status == models.ChargeSucceeded {
		charge.ChargedAt = &now
	}

	err = s.txm.WithTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		return s.charges.Create(ctx, tx, charge)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("charge created",
		ports.String("account_id", account.ID.String()),
		ports.String("charge", remote.ID),
		ports.Int64("amount", remote.Amount))
	return charge, nil
}

// ListChargesRequest pages through the account's remote charges. CreatedFrom
// and CreatedTo bound the remote created timestamp; StartingAfter is the
// provider's cursor. Sync upserts the listed charges into the local mirror.
type ListChargesRequest struct {
	AccountID     uuid.UUID
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	StartingAfter string
	Limit         int64
	Sync          bool
}

// ListCharges lists the account's charges from the provider, optionally
// syncing them into local rows.
func (s *Service) ListCharges(ctx context.Context, req ListChargesRequest) ([]*ports.RemoteCharge, error) {
	account, err := s.getAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsCustomer() {
		return nil, apperrors.NewValidationError(CodeAccountNotCustomer,
			"the account has no billing customer")
	}

	remotes, err := s.gateway.ListCharges(ctx, ports.ChargeListFilter{
		CustomerID:    account.Customer(),
		CreatedFrom:   req.CreatedFrom,
		CreatedTo:     req.CreatedTo,
		StartingAfter: req.StartingAfter,
		Limit:         req.Limit,
	})
	if err != nil {
		return nil, err
	}

	if req.Sync && len(remotes) > 0 {
		if err := s.syncCharges(ctx, account, remotes); err != nil {
			return nil, err
		}
	}
	return remotes, nil
}

func (s *Service) syncCharges(ctx context.Context, account *models.Account, remotes []*ports.RemoteCharge) error {
	return s.txm.WithTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		for _, remote := range remotes {
			charge, err := s.charges.GetByRef(ctx, tx, account.ID, remote.ID)
			if err != nil {
				return err
			}
			now := s.now().UTC()
			fresh := charge == nil
			if fresh {
				charge = &models.Charge{
					ID:        uuid.New(),
					AccountID: account.ID,
					ChargeRef: remote.ID,
					CreatedAt: now,
				}
			}
			charge.Amount = remote.Amount
			charge.Currency = remote.Currency
			charge.Status = chargeStatus(remote)
			if remote.InvoiceID != "" {
				charge.InvoiceRef = &remote.InvoiceID
			}
			if remote.AmountRefunded > 0 {
				refunded := remote.AmountRefunded
				charge.AmountRefunded = &refunded
				charge.Status = models.ChargeRefunded
			}
			charge.UpdatedAt = now

			if fresh {
				err = s.charges.Create(ctx, tx, charge)
			} else {
				err = s.charges.Update(ctx, tx, charge)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ChargeHistory returns the account's local charge rows, newest first. The
// account and its charges are read in one read-only transaction, so the
// listing is consistent with concurrent webhook writes.
func (s *Service) ChargeHistory(ctx context.Context, accountID uuid.UUID) ([]*models.Charge, error) {
	var history []*models.Charge
	err := s.txm.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		account, err := s.accounts.GetByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return apperrors.NewValidationError(CodeAccountNotFound,
				"account does not exist")
		}
		history, err = s.charges.ListByAccount(ctx, tx, account.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

func chargeStatus(remote *ports.RemoteCharge) models.ChargeStatus {
	switch remote.Status {
	case "succeeded":
		if remote.AmountRefunded >= remote.Amount && remote.AmountRefunded > 0 {
			return models.ChargeRefunded
		}
		return models.ChargeSucceeded
	case "failed":
		return models.ChargeFailed
	default:
		return models.ChargePending
	}
}
