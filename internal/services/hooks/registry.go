package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/gobill/billing-service/internal/domain/ports"
	apperrors "github.com/gobill/billing-service/pkg/errors"
)

// Handler is a hook invoked when a named webhook event is dispatched. It
// receives the reconciled entity for the event. Returning an error stops the
// chain for that event.
type Handler func(ctx context.Context, eventName string, entity *ports.Entity) error

// Registry maps event names to ordered handler chains. Handlers are invoked
// sequentially in registration order, so later handlers may rely on the side
// effects of earlier ones; registration order is the only ordering primitive.
// The registry is populated at startup and read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   ports.Logger
}

// NewRegistry creates an empty hook registry.
func NewRegistry(logger ports.Logger) *Registry {
	return &Registry{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Register appends the handler to the chain of every named event. Registering
// the same handler twice appends it twice.
func (r *Registry) Register(handler Handler, eventNames ...string) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range eventNames {
		if name == "" {
			continue
		}
		r.handlers[name] = append(r.handlers[name], handler)
	}
	return r
}

// HasHandlers reports whether any handler is registered for the event.
func (r *Registry) HasHandlers(eventName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[eventName]) > 0
}

// Dispatch invokes the event's handlers sequentially in registration order.
// The first failure stops the chain and is returned to the caller, which is
// responsible for signalling the provider to redeliver. An event with no
// handlers dispatches trivially.
func (r *Registry) Dispatch(ctx context.Context, eventName string, entity *ports.Entity) error {
	r.mu.RLock()
	chain := r.handlers[eventName]
	r.mu.RUnlock()

	for i, handler := range chain {
		if err := r.invoke(ctx, handler, eventName, entity); err != nil {
			r.logger.Warn("event hook failed",
				ports.String("event", eventName),
				ports.Int("handler_index", i),
				ports.Err(err))
			return err
		}
	}
	return nil
}

// invoke runs a single handler, converting a panic into a handler error so a
// misbehaving hook fails its delivery instead of the process.
func (r *Registry) invoke(ctx context.Context, handler Handler, eventName string, entity *ports.Entity) (err error) {
	defer func() {
		if p := recover(); p != nil {
			e := apperrors.NewBillingError("HOOK_PANIC",
				fmt.Sprintf("hook for event %s panicked: %v", eventName, p),
				apperrors.CategoryHandler, true)
			err = e
		}
	}()
	return handler(ctx, eventName, entity)
}
