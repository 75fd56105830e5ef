package ports

import (
	"context"
	"encoding/json"
	"time"
)

// EntityKind is the remote provider's type tag for a payment object.
type EntityKind string

const (
	KindCharge       EntityKind = "charge"
	KindCustomer     EntityKind = "customer"
	KindCard         EntityKind = "card"
	KindSubscription EntityKind = "subscription"
	KindInvoice      EntityKind = "invoice"
	KindPlan         EntityKind = "plan"
	KindCoupon       EntityKind = "coupon"
	KindDispute      EntityKind = "dispute"
	KindUnknown      EntityKind = ""
)

// RemoteCharge is the provider's view of a payment attempt. Amounts are in
// the currency's minor unit.
type RemoteCharge struct {
	ID             string
	Amount         int64
	AmountRefunded int64
	Currency       string
	Status         string
	Paid           bool
	CustomerID     string
	InvoiceID      string
	Created        time.Time
}

// RemoteSubscription is the provider's view of a subscription.
type RemoteSubscription struct {
	ID                string
	CustomerID        string
	PlanCode          string
	Status            string
	Quantity          int64
	CancelAtPeriodEnd bool
	PeriodStart       time.Time
	PeriodEnd         time.Time
}

// RemoteCustomer is the provider's view of a customer.
type RemoteCustomer struct {
	ID          string
	Email       string
	Description string
}

// RemoteInvoice is the provider's view of an invoice. SubscriptionID is the
// remote reference of the subscription the invoice bills, when any.
type RemoteInvoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	Total          int64
	Currency       string
}

// RemotePlan is the provider's view of a catalog plan.
type RemotePlan struct {
	Code          string
	Name          string
	Amount        int64
	Currency      string
	Interval      string
	IntervalCount int64
	TrialDays     int64
	Active        bool
}

// RemoteCard is a card sub-resource owned by a customer.
type RemoteCard struct {
	ID         string
	CustomerID string
	Brand      string
	Last4      string
	ExpMonth   int64
	ExpYear    int64
}

// RemoteCoupon is the provider's view of a discount coupon.
type RemoteCoupon struct {
	ID         string
	PercentOff float64
	AmountOff  int64
	Currency   string
}

// RemoteDispute is the provider's view of a charge dispute.
type RemoteDispute struct {
	ID       string
	ChargeID string
	Amount   int64
	Currency string
	Reason   string
	Status   string
}

// Entity is the canonical resolved form of a webhook event's embedded object:
// a closed tagged variant over the known entity kinds, with exactly the
// pointer matching Kind populated. Kind KindUnknown means resolution fell
// through to the raw embedded payload, kept in Raw.
type Entity struct {
	Kind         EntityKind
	Charge       *RemoteCharge
	Customer     *RemoteCustomer
	Card         *RemoteCard
	Subscription *RemoteSubscription
	Invoice      *RemoteInvoice
	Plan         *RemotePlan
	Coupon       *RemoteCoupon
	Dispute      *RemoteDispute
	Raw          json.RawMessage
}

// CreateCustomerRequest creates a remote customer. Source is an optional
// payment token to attach; Metadata travels to the provider verbatim.
type CreateCustomerRequest struct {
	Email       string
	Description string
	Source      string
	Coupon      string
	Metadata    map[string]string
}

// SubscriptionCreateRequest starts a remote subscription for a customer.
type SubscriptionCreateRequest struct {
	CustomerID string
	PlanCode   string
	Quantity   int64
	Source     string
	Coupon     string
	TrialEnd   *time.Time
}

// SubscriptionUpdateRequest mutates an existing remote subscription. Nil
// fields are left untouched.
type SubscriptionUpdateRequest struct {
	PlanCode string
	Quantity *int64
	Source   string
	Coupon   string
}

// ChargeCreateRequest creates a one-off remote charge.
type ChargeCreateRequest struct {
	CustomerID   string
	Source       string
	Amount       int64
	Currency     string
	Description  string
	ReceiptEmail string
}

// ChargeListFilter filters a remote charge listing. StartingAfter is the
// provider's pagination cursor (a charge id); Limit caps the page size.
type ChargeListFilter struct {
	CustomerID    string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	StartingAfter string
	Limit         int64
}

// PlanCreateRequest creates a remote catalog plan. Statement is the short
// descriptor that appears on customer statements.
type PlanCreateRequest struct {
	Code          string
	Name          string
	Statement     string
	Amount        int64
	Currency      string
	Interval      string
	IntervalCount int64
	TrialDays     int64
}

// PaymentGateway is the narrow capability interface over the remote payment
// provider. Every call must respect the deadline on ctx; failures are
// transient unless the provider rejects the request outright.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*RemoteCustomer, error)
	UpdateCustomerSource(ctx context.Context, customerID, source string) error

	GetCharge(ctx context.Context, id string) (*RemoteCharge, error)
	GetCustomer(ctx context.Context, id string) (*RemoteCustomer, error)
	GetCard(ctx context.Context, customerID, cardID string) (*RemoteCard, error)
	GetSubscription(ctx context.Context, id string) (*RemoteSubscription, error)
	GetInvoice(ctx context.Context, id string) (*RemoteInvoice, error)
	GetPlan(ctx context.Context, code string) (*RemotePlan, error)
	GetCoupon(ctx context.Context, id string) (*RemoteCoupon, error)
	GetDispute(ctx context.Context, id string) (*RemoteDispute, error)

	CreateSubscription(ctx context.Context, req SubscriptionCreateRequest) (*RemoteSubscription, error)
	UpdateSubscription(ctx context.Context, id string, req SubscriptionUpdateRequest) (*RemoteSubscription, error)
	CancelSubscriptionAtPeriodEnd(ctx context.Context, id string) (*RemoteSubscription, error)

	CreateCharge(ctx context.Context, req ChargeCreateRequest) (*RemoteCharge, error)
	ListCharges(ctx context.Context, filter ChargeListFilter) ([]*RemoteCharge, error)

	CreatePlan(ctx context.Context, req PlanCreateRequest) (*RemotePlan, error)
	ListPlans(ctx context.Context) ([]*RemotePlan, error)
}

// WebhookIPSource fetches the provider's published list of webhook source
// addresses.
type WebhookIPSource interface {
	WebhookSourceIPs(ctx context.Context) ([]string, error)
}
