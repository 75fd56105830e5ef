package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
	apperrors "github.com/gobill/billing-service/pkg/errors"
)

// Resolver turns a webhook event's embedded object into a canonical entity.
// Embedded webhook payloads can be stale by the time the delivery arrives, so
// for most kinds the resolver refetches the object from the provider and the
// payload only tells it what to fetch. The exceptions are deleted
// subscriptions, which no longer exist remotely, and kinds the resolver does
// not know, which pass through as raw payload.
type Resolver struct {
	gateway ports.PaymentGateway
	logger  ports.Logger
}

func NewResolver(gateway ports.PaymentGateway, logger ports.Logger) *Resolver {
	return &Resolver{gateway: gateway, logger: logger}
}

// probe is the minimal shape sniffed off the embedded object to decide the
// fetch strategy. Customer may arrive as a string reference or an expanded
// object; only the reference is needed.
type probe struct {
	Object   string          `json:"object"`
	ID       string          `json:"id"`
	Customer json.RawMessage `json:"customer"`
}

func (p *probe) customerID() string {
	if len(p.Customer) == 0 {
		return ""
	}
	var ref string
	if err := json.Unmarshal(p.Customer, &ref); err == nil {
		return ref
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(p.Customer, &obj); err == nil {
		return obj.ID
	}
	return ""
}

// Resolve maps the event's embedded object to its canonical entity. A nil
// error with Kind KindUnknown means the payload is passed through raw; any
// provider fetch failure is returned as a retriable resolution error so the
// delivery is retried.
func (r *Resolver) Resolve(ctx context.Context, event *models.Event) (*ports.Entity, error) {
	raw := event.Data.Object
	if len(raw) == 0 {
		// No embedded object means no entity context; hooks still run
		// with whatever the envelope carried.
		r.logger.Debug("event carries no embedded object, passing raw",
			ports.String("event_id", event.ID))
		return &ports.Entity{Kind: ports.KindUnknown, Raw: raw}, nil
	}

	var p probe
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, apperrors.NewBillingError("EVENT_MALFORMED",
			fmt.Sprintf("event %s embedded object is not valid JSON", event.ID),
			apperrors.CategoryResolution, false)
	}

	kind := ports.EntityKind(p.Object)
	switch kind {
	case ports.KindCharge:
		charge, err := r.gateway.GetCharge(ctx, p.ID)
		if err != nil {
			return nil, r.fetchError(kind, p.ID, err)
		}
		return &ports.Entity{Kind: kind, Charge: charge, Raw: raw}, nil

	case ports.KindCustomer:
		customer, err := r.gateway.GetCustomer(ctx, p.ID)
		if err != nil {
			return nil, r.fetchError(kind, p.ID, err)
		}
		return &ports.Entity{Kind: kind, Customer: customer, Raw: raw}, nil

	case ports.KindCard:
		// Cards are customer sub-resources; without an owning customer in
		// the payload there is nothing to fetch against.
		customerID := p.customerID()
		if customerID == "" {
			r.logger.Debug("card event without customer reference, passing raw",
				ports.String("card", p.ID))
			return &ports.Entity{Kind: ports.KindUnknown, Raw: raw}, nil
		}
		card, err := r.gateway.GetCard(ctx, customerID, p.ID)
		if err != nil {
			return nil, r.fetchError(kind, p.ID, err)
		}
		return &ports.Entity{Kind: kind, Card: card, Raw: raw}, nil

	case ports.KindSubscription:
		// Once the provider deletes a subscription it can no longer be
		// fetched; the payload is the canonical final state.
		if event.Type == models.EventSubscriptionDeleted {
			sub, err := parseSubscriptionPayload(raw)
			if err != nil {
				return nil, apperrors.NewBillingError("EVENT_MALFORMED",
					fmt.Sprintf("event %s subscription payload: %v", event.ID, err),
					apperrors.CategoryResolution, false)
			}
			return &ports.Entity{Kind: kind, Subscription: sub, Raw: raw}, nil
		}
		sub, err := r.gateway.GetSubscription(ctx, p.ID)
		if err != nil {
			return nil, r.fetchError(kind, p.ID, err)
		}
		return &ports.Entity{Kind: kind, Subscription: sub, Raw: raw}, nil

	case ports.KindInvoice:
		invoice, err := r.gateway.GetInvoice(ctx, p.ID)
		if err != nil {
			return nil, r.fetchError(kind, p.ID, err)
		}
		return &ports.Entity{Kind: kind, Invoice: invoice, Raw: raw}, nil

	case ports.KindPlan:
		plan, err := r.gateway.GetPlan(ctx, p.ID)
		if err != nil {
			return nil, r.fetchError(kind, p.ID, err)
		}
		return &ports.Entity{Kind: kind, Plan: plan, Raw: raw}, nil

	case ports.KindCoupon:
		coupon, err := r.gateway.GetCoupon(ctx, p.ID)
		if err != nil {
			return nil, r.fetchError(kind, p.ID, err)
		}
		return &ports.Entity{Kind: kind, Coupon: coupon, Raw: raw}, nil

	case ports.KindDispute:
		dispute, err := r.gateway.GetDispute(ctx, p.ID)
		if err != nil {
			return nil, r.fetchError(kind, p.ID, err)
		}
		return &ports.Entity{Kind: kind, Dispute: dispute, Raw: raw}, nil

	default:
		r.logger.Debug("unrecognized entity kind, passing raw payload",
			ports.String("object", p.Object),
			ports.String("event", event.ID))
		return &ports.Entity{Kind: ports.KindUnknown, Raw: raw}, nil
	}
}

func (r *Resolver) fetchError(kind ports.EntityKind, id string, cause error) error {
	e := apperrors.NewBillingError("ENTITY_FETCH_FAILED",
		fmt.Sprintf("fetching %s %s from provider", kind, id),
		apperrors.CategoryResolution, true)
	e.Cause = cause
	return e
}

// subscriptionPayload is the wire shape of an embedded subscription object.
// Period and quantity fields moved from the top level onto items in newer
// provider API versions; both locations are read with the top level winning.
type subscriptionPayload struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Quantity          int64  `json:"quantity"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
	Customer          json.RawMessage `json:"customer"`
	Plan              struct {
		ID string `json:"id"`
	} `json:"plan"`
	Items struct {
		Data []struct {
			Quantity           int64 `json:"quantity"`
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
			Plan               struct {
				ID string `json:"id"`
			} `json:"plan"`
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func parseSubscriptionPayload(raw json.RawMessage) (*ports.RemoteSubscription, error) {
	var w subscriptionPayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	if w.ID == "" {
		return nil, fmt.Errorf("missing subscription id")
	}

	sub := &ports.RemoteSubscription{
		ID:                w.ID,
		Status:            w.Status,
		Quantity:          w.Quantity,
		CancelAtPeriodEnd: w.CancelAtPeriodEnd,
		PlanCode:          w.Plan.ID,
	}
	sub.CustomerID = (&probe{Customer: w.Customer}).customerID()
	if w.CurrentPeriodStart > 0 {
		sub.PeriodStart = time.Unix(w.CurrentPeriodStart, 0)
	}
	if w.CurrentPeriodEnd > 0 {
		sub.PeriodEnd = time.Unix(w.CurrentPeriodEnd, 0)
	}

	if len(w.Items.Data) > 0 {
		item := w.Items.Data[0]
		if sub.Quantity == 0 {
			sub.Quantity = item.Quantity
		}
		if sub.PeriodStart.IsZero() && item.CurrentPeriodStart > 0 {
			sub.PeriodStart = time.Unix(item.CurrentPeriodStart, 0)
		}
		if sub.PeriodEnd.IsZero() && item.CurrentPeriodEnd > 0 {
			sub.PeriodEnd = time.Unix(item.CurrentPeriodEnd, 0)
		}
		if sub.PlanCode == "" {
			sub.PlanCode = item.Plan.ID
		}
		if sub.PlanCode == "" {
			sub.PlanCode = item.Price.ID
		}
	}
	return sub, nil
}
