package billing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
	"github.com/gobill/billing-service/internal/services/lifecycle"
	"github.com/gobill/billing-service/internal/testutil/mocks"
	apperrors "github.com/gobill/billing-service/pkg/errors"
	"github.com/gobill/billing-service/pkg/resilience"
)

type handlerMocks struct {
	accounts      *mocks.MockAccountRepository
	plans         *mocks.MockPlanRepository
	subscriptions *mocks.MockSubscriptionRepository
	charges       *mocks.MockChargeRepository
	gateway       *mocks.MockPaymentGateway
}

func newHandler() (*Handler, *handlerMocks) {
	m := &handlerMocks{
		accounts:      new(mocks.MockAccountRepository),
		plans:         new(mocks.MockPlanRepository),
		subscriptions: new(mocks.MockSubscriptionRepository),
		charges:       new(mocks.MockChargeRepository),
		gateway:       new(mocks.MockPaymentGateway),
	}
	txm := &mocks.StubTransactionManager{}
	service := lifecycle.NewService(txm.DB, txm,
		m.accounts, m.plans, m.subscriptions, m.charges,
		m.gateway, mocks.NopLogger{})
	return NewHandler(service, resilience.TestTimeoutConfig(), zap.NewNop()), m
}

func customerAccount() *models.Account {
	ref := "cus_1"
	return &models.Account{ID: uuid.New(), Email: "a@example.com", CustomerRef: &ref}
}

func postJSON(target, body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
}

func apperrGateway() error {
	return apperrors.WrapGateway("GATEWAY_UNREACHABLE", "provider request failed", nil)
}

func TestSubscribe_CreatesSubscription(t *testing.T) {
	h, m := newHandler()
	account := customerAccount()
	plan := &models.Plan{ID: uuid.New(), Code: "pro-monthly", Level: 2, Amount: 4900}

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "pro-monthly").Return(plan, nil)
	m.subscriptions.On("GetCurrent", mock.Anything, mock.Anything, account.ID).Return(nil, nil)
	m.gateway.On("CreateSubscription", mock.Anything, mock.AnythingOfType("ports.SubscriptionCreateRequest")).
		Return(&ports.RemoteSubscription{
			ID:          "sub_1",
			Status:      models.SubStatusActive,
			Quantity:    1,
			PeriodStart: time.Now(),
			PeriodEnd:   time.Now().AddDate(0, 1, 0),
		}, nil)
	m.subscriptions.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Subscription")).Return(nil)
	m.accounts.On("Update", mock.Anything, mock.Anything, account).Return(nil)

	rec := httptest.NewRecorder()
	h.Subscribe(rec, postJSON("/api/v1/subscriptions",
		`{"account_id":"`+account.ID.String()+`","plan_code":"pro-monthly"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sub_1")
}

func TestSubscribe_UnknownPlanReturns422(t *testing.T) {
	h, m := newHandler()
	account := customerAccount()

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "nope").Return(nil, nil)

	rec := httptest.NewRecorder()
	h.Subscribe(rec, postJSON("/api/v1/subscriptions",
		`{"account_id":"`+account.ID.String()+`","plan_code":"nope"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "PLAN_NOT_FOUND")
}

func TestSubscribe_BadAccountIDReturns400(t *testing.T) {
	h, _ := newHandler()

	rec := httptest.NewRecorder()
	h.Subscribe(rec, postJSON("/api/v1/subscriptions", `{"account_id":"not-a-uuid"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancel_NotACustomerReturns422(t *testing.T) {
	h, m := newHandler()
	account := &models.Account{ID: uuid.New(), Email: "a@example.com"}

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)

	rec := httptest.NewRecorder()
	h.Cancel(rec, postJSON("/api/v1/subscriptions/cancel",
		`{"account_id":"`+account.ID.String()+`"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "ACCOUNT_NOT_CUSTOMER")
}

func TestCreateCharge_GatewayFailureReturns502(t *testing.T) {
	h, m := newHandler()
	account := customerAccount()

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.gateway.On("CreateCharge", mock.Anything, mock.AnythingOfType("ports.ChargeCreateRequest")).
		Return(nil, apperrGateway())

	rec := httptest.NewRecorder()
	h.CreateCharge(rec, postJSON("/api/v1/charges",
		`{"account_id":"`+account.ID.String()+`","amount":2500,"currency":"usd"}`))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCreateCharge_Succeeds(t *testing.T) {
	h, m := newHandler()
	account := customerAccount()

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.gateway.On("CreateCharge", mock.Anything, mock.AnythingOfType("ports.ChargeCreateRequest")).
		Return(&ports.RemoteCharge{ID: "ch_1", Amount: 2500, Currency: "usd", Status: "succeeded", Paid: true}, nil)
	m.charges.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Charge")).Return(nil)

	rec := httptest.NewRecorder()
	h.CreateCharge(rec, postJSON("/api/v1/charges",
		`{"account_id":"`+account.ID.String()+`","amount":2500,"currency":"usd"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ch_1")
}

func TestChargeHistory_ReturnsLocalRows(t *testing.T) {
	h, m := newHandler()
	account := customerAccount()
	rows := []*models.Charge{{ID: uuid.New(), AccountID: account.ID, ChargeRef: "ch_9", Amount: 900}}

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.charges.On("ListByAccount", mock.Anything, mock.Anything, account.ID).Return(rows, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/charges/history?account_id="+account.ID.String(), nil)
	rec := httptest.NewRecorder()
	h.ChargeHistory(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ch_9")
	m.gateway.AssertNotCalled(t, "ListCharges")
}

func TestEnsureCustomer_ReturnsCustomerRef(t *testing.T) {
	h, m := newHandler()
	account := customerAccount()

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)

	rec := httptest.NewRecorder()
	h.EnsureCustomer(rec, postJSON("/api/v1/customers",
		`{"account_id":"`+account.ID.String()+`"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cus_1")
}

func TestSubscribe_MethodNotAllowed(t *testing.T) {
	h, _ := newHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil)
	rec := httptest.NewRecorder()
	h.Subscribe(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
