// Package stripe adapts the Stripe API to the payment gateway port.
package stripe

import (
	"context"
	"errors"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/gobill/billing-service/internal/domain/ports"
	apperrors "github.com/gobill/billing-service/pkg/errors"
	"github.com/gobill/billing-service/pkg/observability"
)

// Gateway implements ports.PaymentGateway over the Stripe API.
type Gateway struct {
	sc *client.API
}

var _ ports.PaymentGateway = (*Gateway)(nil)

// NewGateway creates a Stripe gateway. The HTTP client bounds every API
// call; pass one with a timeout.
func NewGateway(apiKey string, httpClient *http.Client) *Gateway {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: httpClient,
	})
	backends := &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	return &Gateway{sc: client.New(apiKey, backends)}
}

// wrapErr maps a Stripe failure onto the billing error taxonomy. Request
// errors (bad parameters, missing objects) are terminal; API and connectivity
// failures are transient.
func wrapErr(op string, err error) error {
	observability.RecordGatewayRequest(op, err)
	if err == nil {
		return nil
	}

	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		retriable := sErr.HTTPStatusCode >= 500 || sErr.HTTPStatusCode == http.StatusTooManyRequests
		e := apperrors.NewBillingError("GATEWAY_"+string(sErr.Type), op+" failed",
			apperrors.CategoryGateway, retriable)
		e.GatewayMessage = sErr.Msg
		e.Cause = err
		return e
	}
	return apperrors.WrapGateway("GATEWAY_UNREACHABLE", op+" failed", err)
}

func params(ctx context.Context) stripe.Params {
	return stripe.Params{Context: ctx}
}

func (g *Gateway) CreateCustomer(ctx context.Context, req ports.CreateCustomerRequest) (*ports.RemoteCustomer, error) {
	p := &stripe.CustomerParams{
		Params: params(ctx),
		Email:  stripe.String(req.Email),
	}
	if req.Description != "" {
		p.Description = stripe.String(req.Description)
	}
	if req.Source != "" {
		p.Source = stripe.String(req.Source)
	}
	if req.Coupon != "" {
		p.Coupon = stripe.String(req.Coupon)
	}
	for k, v := range req.Metadata {
		p.AddMetadata(k, v)
	}

	cust, err := g.sc.Customers.New(p)
	if err != nil {
		return nil, wrapErr("create_customer", err)
	}
	observability.RecordGatewayRequest("create_customer", nil)
	return customerFromStripe(cust), nil
}

func (g *Gateway) UpdateCustomerSource(ctx context.Context, customerID, source string) error {
	p := &stripe.CustomerParams{
		Params: params(ctx),
		Source: stripe.String(source),
	}
	if _, err := g.sc.Customers.Update(customerID, p); err != nil {
		return wrapErr("update_customer_source", err)
	}
	observability.RecordGatewayRequest("update_customer_source", nil)
	return nil
}

func (g *Gateway) GetCharge(ctx context.Context, id string) (*ports.RemoteCharge, error) {
	ch, err := g.sc.Charges.Get(id, &stripe.ChargeParams{Params: params(ctx)})
	if err != nil {
		return nil, wrapErr("get_charge", err)
	}
	observability.RecordGatewayRequest("get_charge", nil)
	return chargeFromStripe(ch), nil
}

func (g *Gateway) GetCustomer(ctx context.Context, id string) (*ports.RemoteCustomer, error) {
	cust, err := g.sc.Customers.Get(id, &stripe.CustomerParams{Params: params(ctx)})
	if err != nil {
		return nil, wrapErr("get_customer", err)
	}
	observability.RecordGatewayRequest("get_customer", nil)
	return customerFromStripe(cust), nil
}

func (g *Gateway) GetCard(ctx context.Context, customerID, cardID string) (*ports.RemoteCard, error) {
	card, err := g.sc.Cards.Get(cardID, &stripe.CardParams{
		Params:   params(ctx),
		Customer: stripe.String(customerID),
	})
	if err != nil {
		return nil, wrapErr("get_card", err)
	}
	observability.RecordGatewayRequest("get_card", nil)
	return &ports.RemoteCard{
		ID:         card.ID,
		CustomerID: customerID,
		Brand:      string(card.Brand),
		Last4:      card.Last4,
		ExpMonth:   card.ExpMonth,
		ExpYear:    card.ExpYear,
	}, nil
}

func (g *Gateway) GetSubscription(ctx context.Context, id string) (*ports.RemoteSubscription, error) {
	sub, err := g.sc.Subscriptions.Get(id, &stripe.SubscriptionParams{Params: params(ctx)})
	if err != nil {
		return nil, wrapErr("get_subscription", err)
	}
	observability.RecordGatewayRequest("get_subscription", nil)
	return subscriptionFromStripe(sub), nil
}

func (g *Gateway) GetInvoice(ctx context.Context, id string) (*ports.RemoteInvoice, error) {
	inv, err := g.sc.Invoices.Get(id, &stripe.InvoiceParams{Params: params(ctx)})
	if err != nil {
		return nil, wrapErr("get_invoice", err)
	}
	observability.RecordGatewayRequest("get_invoice", nil)

	out := &ports.RemoteInvoice{
		ID:       inv.ID,
		Total:    inv.Total,
		Currency: string(inv.Currency),
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil &&
		inv.Parent.SubscriptionDetails.Subscription != nil {
		out.SubscriptionID = inv.Parent.SubscriptionDetails.Subscription.ID
	}
	return out, nil
}

func (g *Gateway) GetPlan(ctx context.Context, code string) (*ports.RemotePlan, error) {
	plan, err := g.sc.Plans.Get(code, &stripe.PlanParams{Params: params(ctx)})
	if err != nil {
		return nil, wrapErr("get_plan", err)
	}
	observability.RecordGatewayRequest("get_plan", nil)
	return planFromStripe(plan), nil
}

func (g *Gateway) GetCoupon(ctx context.Context, id string) (*ports.RemoteCoupon, error) {
	c, err := g.sc.Coupons.Get(id, &stripe.CouponParams{Params: params(ctx)})
	if err != nil {
		return nil, wrapErr("get_coupon", err)
	}
	observability.RecordGatewayRequest("get_coupon", nil)
	return &ports.RemoteCoupon{
		ID:         c.ID,
		PercentOff: c.PercentOff,
		AmountOff:  c.AmountOff,
		Currency:   string(c.Currency),
	}, nil
}

func (g *Gateway) GetDispute(ctx context.Context, id string) (*ports.RemoteDispute, error) {
	d, err := g.sc.Disputes.Get(id, &stripe.DisputeParams{Params: params(ctx)})
	if err != nil {
		return nil, wrapErr("get_dispute", err)
	}
	observability.RecordGatewayRequest("get_dispute", nil)

	out := &ports.RemoteDispute{
		ID:       d.ID,
		Amount:   d.Amount,
		Currency: string(d.Currency),
		Reason:   string(d.Reason),
		Status:   string(d.Status),
	}
	if d.Charge != nil {
		out.ChargeID = d.Charge.ID
	}
	return out, nil
}

func (g *Gateway) CreateSubscription(ctx context.Context, req ports.SubscriptionCreateRequest) (*ports.RemoteSubscription, error) {
	item := &stripe.SubscriptionItemsParams{
		Price: stripe.String(req.PlanCode),
	}
	if req.Quantity > 0 {
		item.Quantity = stripe.Int64(req.Quantity)
	}

	p := &stripe.SubscriptionParams{
		Params:   params(ctx),
		Customer: stripe.String(req.CustomerID),
		Items:    []*stripe.SubscriptionItemsParams{item},
	}
	if req.Source != "" {
		p.DefaultSource = stripe.String(req.Source)
	}
	if req.Coupon != "" {
		p.Discounts = []*stripe.SubscriptionDiscountParams{
			{Coupon: stripe.String(req.Coupon)},
		}
	}
	if req.TrialEnd != nil {
		p.TrialEnd = stripe.Int64(req.TrialEnd.Unix())
	}

	sub, err := g.sc.Subscriptions.New(p)
	if err != nil {
		return nil, wrapErr("create_subscription", err)
	}
	observability.RecordGatewayRequest("create_subscription", nil)
	return subscriptionFromStripe(sub), nil
}

func (g *Gateway) UpdateSubscription(ctx context.Context, id string, req ports.SubscriptionUpdateRequest) (*ports.RemoteSubscription, error) {
	// Plan and quantity changes go through the subscription's single item,
	// so the current item id has to be fetched first.
	current, err := g.sc.Subscriptions.Get(id, &stripe.SubscriptionParams{Params: params(ctx)})
	if err != nil {
		return nil, wrapErr("update_subscription", err)
	}

	p := &stripe.SubscriptionParams{Params: params(ctx)}
	if req.PlanCode != "" || req.Quantity != nil {
		item := &stripe.SubscriptionItemsParams{}
		if len(current.Items.Data) > 0 {
			item.ID = stripe.String(current.Items.Data[0].ID)
		}
		if req.PlanCode != "" {
			item.Price = stripe.String(req.PlanCode)
		}
		if req.Quantity != nil {
			item.Quantity = stripe.Int64(*req.Quantity)
		}
		p.Items = []*stripe.SubscriptionItemsParams{item}
	}
	if req.Source != "" {
		p.DefaultSource = stripe.String(req.Source)
	}
	if req.Coupon != "" {
		p.Discounts = []*stripe.SubscriptionDiscountParams{
			{Coupon: stripe.String(req.Coupon)},
		}
	}

	sub, err := g.sc.Subscriptions.Update(id, p)
	if err != nil {
		return nil, wrapErr("update_subscription", err)
	}
	observability.RecordGatewayRequest("update_subscription", nil)
	return subscriptionFromStripe(sub), nil
}

func (g *Gateway) CancelSubscriptionAtPeriodEnd(ctx context.Context, id string) (*ports.RemoteSubscription, error) {
	p := &stripe.SubscriptionParams{
		Params:            params(ctx),
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	sub, err := g.sc.Subscriptions.Update(id, p)
	if err != nil {
		return nil, wrapErr("cancel_subscription", err)
	}
	observability.RecordGatewayRequest("cancel_subscription", nil)
	return subscriptionFromStripe(sub), nil
}

func (g *Gateway) CreateCharge(ctx context.Context, req ports.ChargeCreateRequest) (*ports.RemoteCharge, error) {
	p := &stripe.ChargeParams{
		Params:   params(ctx),
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
	}
	if req.CustomerID != "" {
		p.Customer = stripe.String(req.CustomerID)
	}
	if req.Source != "" {
		if err := p.SetSource(req.Source); err != nil {
			return nil, apperrors.NewValidationError("CHARGE_SOURCE_INVALID",
				"the payment source token is not usable")
		}
	}
	if req.Description != "" {
		p.Description = stripe.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		p.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}

	ch, err := g.sc.Charges.New(p)
	if err != nil {
		return nil, wrapErr("create_charge", err)
	}
	observability.RecordGatewayRequest("create_charge", nil)
	return chargeFromStripe(ch), nil
}

func (g *Gateway) ListCharges(ctx context.Context, filter ports.ChargeListFilter) ([]*ports.RemoteCharge, error) {
	p := &stripe.ChargeListParams{
		ListParams: stripe.ListParams{Context: ctx},
	}
	if filter.CustomerID != "" {
		p.Customer = stripe.String(filter.CustomerID)
	}
	if filter.CreatedFrom != nil || filter.CreatedTo != nil {
		r := &stripe.RangeQueryParams{}
		if filter.CreatedFrom != nil {
			r.GreaterThanOrEqual = filter.CreatedFrom.Unix()
		}
		if filter.CreatedTo != nil {
			r.LesserThanOrEqual = filter.CreatedTo.Unix()
		}
		p.CreatedRange = r
	}
	if filter.StartingAfter != "" {
		p.ListParams.StartingAfter = stripe.String(filter.StartingAfter)
	}
	if filter.Limit > 0 {
		p.ListParams.Limit = stripe.Int64(filter.Limit)
	}

	var charges []*ports.RemoteCharge
	it := g.sc.Charges.List(p)
	for it.Next() {
		charges = append(charges, chargeFromStripe(it.Charge()))
	}
	if err := it.Err(); err != nil {
		return nil, wrapErr("list_charges", err)
	}
	observability.RecordGatewayRequest("list_charges", nil)
	return charges, nil
}

func (g *Gateway) CreatePlan(ctx context.Context, req ports.PlanCreateRequest) (*ports.RemotePlan, error) {
	p := &stripe.PlanParams{
		Params:   params(ctx),
		ID:       stripe.String(req.Code),
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		Interval: stripe.String(req.Interval),
		Nickname: stripe.String(req.Name),
		Product: &stripe.PlanProductParams{
			Name:                stripe.String(req.Name),
			StatementDescriptor: stripe.String(req.Statement),
		},
	}
	if req.IntervalCount > 0 {
		p.IntervalCount = stripe.Int64(req.IntervalCount)
	}
	if req.TrialDays > 0 {
		p.TrialPeriodDays = stripe.Int64(req.TrialDays)
	}

	plan, err := g.sc.Plans.New(p)
	if err != nil {
		return nil, wrapErr("create_plan", err)
	}
	observability.RecordGatewayRequest("create_plan", nil)
	return planFromStripe(plan), nil
}

func (g *Gateway) ListPlans(ctx context.Context) ([]*ports.RemotePlan, error) {
	p := &stripe.PlanListParams{
		ListParams: stripe.ListParams{Context: ctx},
	}

	var plans []*ports.RemotePlan
	it := g.sc.Plans.List(p)
	for it.Next() {
		plans = append(plans, planFromStripe(it.Plan()))
	}
	if err := it.Err(); err != nil {
		return nil, wrapErr("list_plans", err)
	}
	observability.RecordGatewayRequest("list_plans", nil)
	return plans, nil
}

func customerFromStripe(cust *stripe.Customer) *ports.RemoteCustomer {
	return &ports.RemoteCustomer{
		ID:          cust.ID,
		Email:       cust.Email,
		Description: cust.Description,
	}
}

func chargeFromStripe(ch *stripe.Charge) *ports.RemoteCharge {
	out := &ports.RemoteCharge{
		ID:             ch.ID,
		Amount:         ch.Amount,
		AmountRefunded: ch.AmountRefunded,
		Currency:       string(ch.Currency),
		Status:         string(ch.Status),
		Paid:           ch.Paid,
		Created:        time.Unix(ch.Created, 0),
	}
	if ch.Customer != nil {
		out.CustomerID = ch.Customer.ID
	}
	if ch.Invoice != nil {
		out.InvoiceID = ch.Invoice.ID
	}
	return out
}

func subscriptionFromStripe(sub *stripe.Subscription) *ports.RemoteSubscription {
	out := &ports.RemoteSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	// Quantity, period and price all live on the subscription's item.
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		out.Quantity = item.Quantity
		out.PeriodStart = time.Unix(item.CurrentPeriodStart, 0)
		out.PeriodEnd = time.Unix(item.CurrentPeriodEnd, 0)
		if item.Price != nil {
			out.PlanCode = item.Price.ID
		}
	}
	return out
}

func planFromStripe(plan *stripe.Plan) *ports.RemotePlan {
	name := plan.Nickname
	if name == "" && plan.Product != nil {
		name = plan.Product.Name
	}
	return &ports.RemotePlan{
		Code:          plan.ID,
		Name:          name,
		Amount:        plan.Amount,
		Currency:      string(plan.Currency),
		Interval:      string(plan.Interval),
		IntervalCount: plan.IntervalCount,
		TrialDays:     plan.TrialPeriodDays,
		Active:        plan.Active,
	}
}
