package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobill/billing-service/internal/domain/ports"
	apperrors "github.com/gobill/billing-service/pkg/errors"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...ports.Field) {}
func (nopLogger) Info(msg string, fields ...ports.Field)  {}
func (nopLogger) Warn(msg string, fields ...ports.Field)  {}
func (nopLogger) Error(msg string, fields ...ports.Field) {}

func TestRegistry_DispatchOrder(t *testing.T) {
	reg := NewRegistry(nopLogger{})

	var calls []string
	reg.Register(func(ctx context.Context, event string, entity *ports.Entity) error {
		calls = append(calls, "first")
		return nil
	}, "charge.succeeded")
	reg.Register(func(ctx context.Context, event string, entity *ports.Entity) error {
		calls = append(calls, "second")
		return nil
	}, "charge.succeeded")

	err := reg.Dispatch(context.Background(), "charge.succeeded", &ports.Entity{Kind: ports.KindCharge})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestRegistry_FirstFailureStopsChain(t *testing.T) {
	reg := NewRegistry(nopLogger{})
	boom := errors.New("db unavailable")

	var secondCalled bool
	reg.Register(func(ctx context.Context, event string, entity *ports.Entity) error {
		return boom
	}, "charge.failed")
	reg.Register(func(ctx context.Context, event string, entity *ports.Entity) error {
		secondCalled = true
		return nil
	}, "charge.failed")

	err := reg.Dispatch(context.Background(), "charge.failed", nil)
	require.ErrorIs(t, err, boom)
	assert.False(t, secondCalled, "handlers after a failure must not run")
}

func TestRegistry_HasHandlers(t *testing.T) {
	reg := NewRegistry(nopLogger{})
	assert.False(t, reg.HasHandlers("customer.subscription.updated"))

	reg.Register(func(ctx context.Context, event string, entity *ports.Entity) error {
		return nil
	}, "customer.subscription.updated", "customer.subscription.deleted")

	assert.True(t, reg.HasHandlers("customer.subscription.updated"))
	assert.True(t, reg.HasHandlers("customer.subscription.deleted"))
	assert.False(t, reg.HasHandlers("charge.refunded"))
}

func TestRegistry_DispatchUnregisteredEvent(t *testing.T) {
	reg := NewRegistry(nopLogger{})
	err := reg.Dispatch(context.Background(), "invoice.created", nil)
	assert.NoError(t, err)
}

func TestRegistry_PanicBecomesHandlerError(t *testing.T) {
	reg := NewRegistry(nopLogger{})
	reg.Register(func(ctx context.Context, event string, entity *ports.Entity) error {
		panic("nil map write")
	}, "charge.refunded")

	err := reg.Dispatch(context.Background(), "charge.refunded", nil)
	require.Error(t, err)

	var be *apperrors.BillingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "HOOK_PANIC", be.Code)
	assert.Equal(t, apperrors.CategoryHandler, be.Category)
}

func TestRegistry_SameHandlerMultipleEvents(t *testing.T) {
	reg := NewRegistry(nopLogger{})

	var events []string
	reg.Register(func(ctx context.Context, event string, entity *ports.Entity) error {
		events = append(events, event)
		return nil
	}, "charge.succeeded", "charge.captured")

	require.NoError(t, reg.Dispatch(context.Background(), "charge.succeeded", nil))
	require.NoError(t, reg.Dispatch(context.Background(), "charge.captured", nil))
	assert.Equal(t, []string{"charge.succeeded", "charge.captured"}, events)
}
