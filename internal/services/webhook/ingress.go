// Package webhook routes inbound provider deliveries: source verification,
// entity resolution and hook dispatch.
package webhook

import (
	"context"
	"time"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
	"github.com/gobill/billing-service/internal/services/hooks"
	"github.com/gobill/billing-service/internal/services/resolver"
	"github.com/gobill/billing-service/pkg/observability"
)

// Ingress processes one webhook delivery end to end. Events nobody subscribed
// to succeed immediately without touching the provider; everything else goes
// through resolution and sequential hook dispatch. Any failure is surfaced so
// the HTTP layer answers with a retryable status.
type Ingress struct {
	registry *hooks.Registry
	resolver *resolver.Resolver
	logger   ports.Logger
}

func NewIngress(registry *hooks.Registry, resolver *resolver.Resolver, logger ports.Logger) *Ingress {
	return &Ingress{
		registry: registry,
		resolver: resolver,
		logger:   logger,
	}
}

// Process resolves the event's entity and dispatches it to the registered
// hooks. A nil return acknowledges the delivery to the provider.
func (i *Ingress) Process(ctx context.Context, event *models.Event) error {
	start := time.Now()

	if !i.registry.HasHandlers(event.Type) {
		observability.RecordWebhookEvent(event.Type, "skipped")
		i.logger.Debug("no hooks registered, acknowledging without resolution",
			ports.String("event", event.ID),
			ports.String("type", event.Type))
		return nil
	}

	entity, err := i.resolver.Resolve(ctx, event)
	if err != nil {
		observability.RecordWebhookEvent(event.Type, "resolution_failed")
		i.logger.Warn("webhook entity resolution failed",
			ports.String("event", event.ID),
			ports.String("type", event.Type),
			ports.Err(err))
		return err
	}

	if err := i.registry.Dispatch(ctx, event.Type, entity); err != nil {
		observability.RecordWebhookEvent(event.Type, "handler_failed")
		return err
	}

	observability.RecordWebhookEvent(event.Type, "accepted")
	observability.ObserveWebhookDuration(event.Type, time.Since(start).Seconds())
	i.logger.Info("webhook processed",
		ports.String("event", event.ID),
		ports.String("type", event.Type),
		ports.String("entity_kind", string(entity.Kind)))
	return nil
}
