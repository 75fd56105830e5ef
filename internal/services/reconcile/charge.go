package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
)

// HandleCharge upserts the local charge row for a charge webhook event. The
// charge must belong to a known customer; events for customers this system
// never created are skipped, since other tenants may share the provider
// account. Failures roll the transaction back and fail the delivery so the
// provider redelivers.
func (e *Engine) HandleCharge(ctx context.Context, eventName string, entity *ports.Entity) error {
	if entity == nil || entity.Charge == nil {
		return nil
	}
	remote := entity.Charge

	if remote.CustomerID == "" {
		e.logger.Debug("charge without customer, skipping",
			ports.String("charge", remote.ID))
		return nil
	}
	account, err := e.accounts.GetByCustomerRef(ctx, e.db, remote.CustomerID)
	if err != nil {
		return err
	}
	if account == nil {
		e.logger.Debug("charge for unknown customer, skipping",
			ports.String("charge", remote.ID),
			ports.String("customer", remote.CustomerID))
		return nil
	}

	var linkedSubID *uuid.UUID
	err = e.txm.WithTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		charge, err := e.charges.GetByRef(ctx, tx, account.ID, remote.ID)
		if err != nil {
			return err
		}
		fresh := charge == nil
		if fresh {
			charge = &models.Charge{
				ID:        uuid.New(),
				AccountID: account.ID,
				ChargeRef: remote.ID,
			}
		}

		charge.Amount = remote.Amount
		if remote.Currency != "" {
			charge.Currency = remote.Currency
		}
		if remote.InvoiceID != "" {
			charge.InvoiceRef = &remote.InvoiceID
		}

		// Subscription charges reach us as bare charge events; the invoice
		// is the only link back to the subscription, so it is fetched once,
		// when the charge is not linked yet.
		if remote.InvoiceID != "" && charge.SubscriptionID == nil {
			invoice, err := e.gateway.GetInvoice(ctx, remote.InvoiceID)
			if err != nil {
				return err
			}
			if invoice != nil && invoice.SubscriptionID != "" {
				sub, err := e.subscriptions.GetByRef(ctx, tx, account.ID, invoice.SubscriptionID)
				if err != nil {
					return err
				}
				if sub != nil {
					charge.SubscriptionID = &sub.ID
					linkedSubID = charge.SubscriptionID
				}
			}
		}

		charge.Status = chargeStatusFromRemote(remote.Status)

		now := e.now().UTC()
		switch eventName {
		case models.EventChargeRefunded:
			charge.Status = models.ChargeRefunded
			refunded := remote.AmountRefunded
			charge.AmountRefunded = &refunded
			charge.RefundedAt = &now
		case models.EventChargeSucceeded, models.EventChargeCaptured:
			if remote.Paid && charge.ChargedAt == nil {
				charge.ChargedAt = &now
			}
		case models.EventChargeFailed:
			if charge.FailedAt == nil {
				charge.FailedAt = &now
			}
		}

		if fresh {
			if err := e.charges.Create(ctx, tx, charge); err != nil {
				return err
			}
		} else if err := e.charges.Update(ctx, tx, charge); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return err
	}

	// Stamping the subscription's last charge time is advisory; its failure
	// must not fail a delivery whose charge row already committed.
	if linkedSubID != nil {
		e.stampSubscriptionCharged(ctx, *linkedSubID)
	}
	return nil
}

func (e *Engine) stampSubscriptionCharged(ctx context.Context, subID uuid.UUID) {
	err := e.txm.WithTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		sub, err := e.subscriptions.GetByID(ctx, tx, subID)
		if err != nil {
			return err
		}
		if sub == nil {
			return nil
		}
		now := e.now().UTC()
		sub.ChargedAt = &now
		return e.subscriptions.Update(ctx, tx, sub)
	})
	if err != nil {
		e.logger.Warn("failed to stamp subscription charge time",
			ports.String("subscription_id", subID.String()),
			ports.Err(err))
	}
}

func chargeStatusFromRemote(status string) models.ChargeStatus {
	switch status {
	case "succeeded":
		return models.ChargeSucceeded
	case "failed":
		return models.ChargeFailed
	default:
		return models.ChargePending
	}
}
