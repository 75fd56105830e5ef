// Package reconcile keeps local billing rows in sync with the remote payment
// provider. It subscribes to charge and subscription webhook events and
// upserts the local mirror from the freshly resolved remote entity. Deliveries
// can arrive out of order and more than once; every handler is therefore an
// idempotent overwrite keyed by the remote reference, last writer wins.
package reconcile

import (
	"time"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
	"github.com/gobill/billing-service/internal/services/hooks"
)

// Config tunes the reconciliation engine. DefaultPlanCode, when set, is the
// plan accounts are moved to after their subscription is canceled remotely.
type Config struct {
	DefaultPlanCode string
}

// Engine reconciles webhook-delivered charge and subscription state into the
// local database.
type Engine struct {
	cfg           Config
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

func NewEngine(
	cfg Config,
	db ports.DBTX,
	txm ports.TransactionManager,
	accounts ports.AccountRepository,
	plans ports.PlanRepository,
	subscriptions ports.SubscriptionRepository,
	charges ports.ChargeRepository,
	gateway ports.PaymentGateway,
	logger ports.Logger,
) *Engine {
	return &Engine{
		cfg:           cfg,
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

// Register subscribes the engine's handlers on the registry. Call it before
// registering application hooks so projections are current when they run.
func (e *Engine) Register(registry *hooks.Registry) {
	registry.Register(e.HandleCharge,
		models.EventChargeSucceeded,
		models.EventChargeCaptured,
		models.EventChargeFailed,
		models.EventChargeRefunded,
	)
	registry.Register(e.HandleSubscription,
		models.EventSubscriptionUpdated,
		models.EventSubscriptionDeleted,
	)
}
