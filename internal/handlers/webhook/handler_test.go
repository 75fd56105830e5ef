package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
	"github.com/gobill/billing-service/internal/services/hooks"
	"github.com/gobill/billing-service/internal/services/resolver"
	webhooksvc "github.com/gobill/billing-service/internal/services/webhook"
	"github.com/gobill/billing-service/internal/testutil/mocks"
	apperrors "github.com/gobill/billing-service/pkg/errors"
	"github.com/gobill/billing-service/pkg/resilience"
)

func newHandler(t *testing.T, gw *mocks.MockPaymentGateway, allowed []string) (*Handler, *hooks.Registry) {
	t.Helper()
	registry := hooks.NewRegistry(mocks.NopLogger{})
	res := resolver.NewResolver(gw, mocks.NopLogger{})
	ingress := webhooksvc.NewIngress(registry, res, mocks.NopLogger{})
	allowlist := webhooksvc.NewAllowlist(nil, allowed, time.Hour, mocks.NopLogger{})
	return NewHandler(allowlist, ingress, resilience.TestTimeoutConfig(), zap.NewNop()), registry
}

func postEvent(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:52312"
	return req
}

const chargeEventBody = `{"id":"evt_1","type":"charge.succeeded","data":{"object":{"object":"charge","id":"ch_1"}}}`

func TestHandleEvent_AcceptsAllowedSource(t *testing.T) {
	gw := new(mocks.MockPaymentGateway)
	handler, registry := newHandler(t, gw, []string{"10.0.0.1"})
	gw.On("GetCharge", mock.Anything, "ch_1").
		Return(&ports.RemoteCharge{ID: "ch_1", Status: "succeeded"}, nil)

	handled := false
	registry.Register(func(ctx context.Context, event string, entity *ports.Entity) error {
		handled = true
		return nil
	}, models.EventChargeSucceeded)

	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, postEvent(chargeEventBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handled)
	assert.Contains(t, rec.Body.String(), "evt_1")
}

func TestHandleEvent_RejectsUnlistedSource(t *testing.T) {
	gw := new(mocks.MockPaymentGateway)
	handler, _ := newHandler(t, gw, []string{"192.0.2.7"})

	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, postEvent(chargeEventBody))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	gw.AssertNotCalled(t, "GetCharge")
}

func TestHandleEvent_ForwardedForWins(t *testing.T) {
	gw := new(mocks.MockPaymentGateway)
	handler, _ := newHandler(t, gw, []string{"203.0.113.5"})

	req := postEvent(chargeEventBody)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, req)

	// No handlers registered, so the event is acknowledged untouched.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleEvent_RetriableFailureRequestsRedelivery(t *testing.T) {
	gw := new(mocks.MockPaymentGateway)
	handler, registry := newHandler(t, gw, []string{"10.0.0.1"})
	gw.On("GetCharge", mock.Anything, "ch_1").
		Return(&ports.RemoteCharge{ID: "ch_1", Status: "succeeded"}, nil)

	registry.Register(func(ctx context.Context, event string, entity *ports.Entity) error {
		return apperrors.NewBillingError("DB_UNAVAILABLE", "database unavailable", apperrors.CategorySystem, true)
	}, models.EventChargeSucceeded)

	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, postEvent(chargeEventBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleEvent_PermanentFailureIsAcknowledged(t *testing.T) {
	gw := new(mocks.MockPaymentGateway)
	handler, registry := newHandler(t, gw, []string{"10.0.0.1"})
	gw.On("GetCharge", mock.Anything, "ch_1").
		Return(&ports.RemoteCharge{ID: "ch_1", Status: "succeeded"}, nil)

	registry.Register(func(ctx context.Context, event string, entity *ports.Entity) error {
		return apperrors.NewValidationError("ACCOUNT_NOT_FOUND", "no such account")
	}, models.EventChargeSucceeded)

	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, postEvent(chargeEventBody))

	// Redelivering a permanently failing event would never succeed.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleEvent_MalformedBodyRejected(t *testing.T) {
	gw := new(mocks.MockPaymentGateway)
	handler, _ := newHandler(t, gw, []string{"10.0.0.1"})

	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, postEvent("{not json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEvent_MissingIDRejected(t *testing.T) {
	gw := new(mocks.MockPaymentGateway)
	handler, _ := newHandler(t, gw, []string{"10.0.0.1"})

	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, postEvent(`{"type":"charge.succeeded"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEvent_MethodNotAllowed(t *testing.T) {
	gw := new(mocks.MockPaymentGateway)
	handler, _ := newHandler(t, gw, []string{"10.0.0.1"})

	req := httptest.NewRequest(http.MethodGet, "/webhooks/payment", nil)
	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
