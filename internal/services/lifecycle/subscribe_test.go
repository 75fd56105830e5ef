package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
	"github.com/gobill/billing-service/internal/testutil/mocks"
	apperrors "github.com/gobill/billing-service/pkg/errors"
)

type serviceMocks struct {
	accounts      *mocks.MockAccountRepository
	plans         *mocks.MockPlanRepository
	subscriptions *mocks.MockSubscriptionRepository
	charges       *mocks.MockChargeRepository
	gateway       *mocks.MockPaymentGateway
}

func newTestService() (*Service, *serviceMocks) {
	m := &serviceMocks{
		accounts:      new(mocks.MockAccountRepository),
		plans:         new(mocks.MockPlanRepository),
		subscriptions: new(mocks.MockSubscriptionRepository),
		charges:       new(mocks.MockChargeRepository),
		gateway:       new(mocks.MockPaymentGateway),
	}
	s := NewService(mocks.StubDBTX{}, &mocks.StubTransactionManager{},
		m.accounts, m.plans, m.subscriptions, m.charges, m.gateway, mocks.NopLogger{})
	return s, m
}

func customerAccount() *models.Account {
	ref := "cus_1"
	return &models.Account{ID: uuid.New(), Email: "a@example.com", CustomerRef: &ref}
}

func payablePlan(code string, level int) *models.Plan {
	return &models.Plan{
		ID:       uuid.New(),
		Code:     code,
		Level:    level,
		Amount:   4900,
		Currency: "usd",
		Interval: models.IntervalMonth,
		Active:   true,
	}
}

func assertValidationCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, code, ve.Code)
}

func TestSubscribe_FirstSubscriptionWithTrial(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()
	plan := payablePlan("pro-monthly", 2)
	plan.TrialDays = 7

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "pro-monthly").Return(plan, nil)
	m.subscriptions.On("GetCurrent", mock.Anything, mock.Anything, account.ID).Return(nil, nil)
	m.subscriptions.On("HasAnyForAccount", mock.Anything, mock.Anything, account.ID).Return(false, nil)

	var gwReq ports.SubscriptionCreateRequest
	m.gateway.On("CreateSubscription", mock.Anything, mock.AnythingOfType("ports.SubscriptionCreateRequest")).
		Run(func(args mock.Arguments) { gwReq = args.Get(1).(ports.SubscriptionCreateRequest) }).
		Return(&ports.RemoteSubscription{
			ID:          "sub_1",
			CustomerID:  "cus_1",
			PlanCode:    "pro-monthly",
			Status:      models.SubStatusTrialing,
			Quantity:    1,
			PeriodStart: time.Now(),
			PeriodEnd:   time.Now().AddDate(0, 1, 0),
		}, nil)

	m.subscriptions.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Subscription")).Return(nil)
	m.accounts.On("Update", mock.Anything, mock.Anything, account).Return(nil)

	sub, err := s.Subscribe(context.Background(), SubscribeRequest{
		AccountID: account.ID,
		PlanCode:  "pro-monthly",
	})

	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub_1", sub.SubscriptionRef)
	assert.Equal(t, models.SubStatusTrialing, sub.Status)
	assert.True(t, sub.Active)
	assert.Equal(t, int64(1), sub.Quantity)
	require.NotNil(t, gwReq.TrialEnd, "first paid plan gets the trial")
	require.NotNil(t, account.PlanID)
	assert.Equal(t, plan.ID, *account.PlanID)
}

func TestSubscribe_NoTrialWhenPreviouslySubscribed(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()
	plan := payablePlan("pro-monthly", 2)
	plan.TrialDays = 7

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "pro-monthly").Return(plan, nil)
	m.subscriptions.On("GetCurrent", mock.Anything, mock.Anything, account.ID).Return(nil, nil)
	m.subscriptions.On("HasAnyForAccount", mock.Anything, mock.Anything, account.ID).Return(true, nil)

	var gwReq ports.SubscriptionCreateRequest
	m.gateway.On("CreateSubscription", mock.Anything, mock.AnythingOfType("ports.SubscriptionCreateRequest")).
		Run(func(args mock.Arguments) { gwReq = args.Get(1).(ports.SubscriptionCreateRequest) }).
		Return(&ports.RemoteSubscription{ID: "sub_2", Status: models.SubStatusActive, Quantity: 1}, nil)

	m.subscriptions.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Subscription")).Return(nil)
	m.accounts.On("Update", mock.Anything, mock.Anything, account).Return(nil)

	_, err := s.Subscribe(context.Background(), SubscribeRequest{
		AccountID: account.ID,
		PlanCode:  "pro-monthly",
	})

	require.NoError(t, err)
	assert.Nil(t, gwReq.TrialEnd, "returning subscribers are not re-trialed")
}

func TestSubscribe_CreatesCustomerWhenAbsent(t *testing.T) {
	s, m := newTestService()
	account := &models.Account{ID: uuid.New(), Email: "new@example.com"}
	plan := payablePlan("pro-monthly", 2)

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "pro-monthly").Return(plan, nil)
	m.subscriptions.On("GetCurrent", mock.Anything, mock.Anything, account.ID).Return(nil, nil)

	m.gateway.On("CreateCustomer", mock.Anything, mock.AnythingOfType("ports.CreateCustomerRequest")).
		Return(&ports.RemoteCustomer{ID: "cus_new"}, nil)
	m.accounts.On("Update", mock.Anything, mock.Anything, account).Return(nil)

	m.gateway.On("CreateSubscription", mock.Anything, mock.AnythingOfType("ports.SubscriptionCreateRequest")).
		Return(&ports.RemoteSubscription{ID: "sub_3", Status: models.SubStatusActive, Quantity: 1}, nil)
	m.subscriptions.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Subscription")).Return(nil)

	_, err := s.Subscribe(context.Background(), SubscribeRequest{
		AccountID: account.ID,
		PlanCode:  "pro-monthly",
		Source:    "tok_visa",
	})

	require.NoError(t, err)
	require.NotNil(t, account.CustomerRef)
	assert.Equal(t, "cus_new", *account.CustomerRef)
}

func TestSubscribe_UpgradeUpdatesRemoteAndLocal(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()
	basic := payablePlan("basic-monthly", 1)
	pro := payablePlan("pro-monthly", 2)
	basicID := basic.ID
	account.PlanID = &basicID
	current := &models.Subscription{
		ID:              uuid.New(),
		AccountID:       account.ID,
		PlanID:          basic.ID,
		SubscriptionRef: "sub_1",
		Status:          models.SubStatusActive,
		Quantity:        1,
		Active:          true,
	}

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "pro-monthly").Return(pro, nil)
	m.subscriptions.On("GetCurrent", mock.Anything, mock.Anything, account.ID).Return(current, nil)
	m.plans.On("GetByID", mock.Anything, mock.Anything, basic.ID).Return(basic, nil)

	m.gateway.On("UpdateSubscription", mock.Anything, "sub_1", mock.AnythingOfType("ports.SubscriptionUpdateRequest")).
		Return(&ports.RemoteSubscription{
			ID:       "sub_1",
			Status:   models.SubStatusActive,
			Quantity: 3,
		}, nil)
	m.subscriptions.On("Update", mock.Anything, mock.Anything, current).Return(nil)
	m.accounts.On("Update", mock.Anything, mock.Anything, account).Return(nil)

	sub, err := s.Subscribe(context.Background(), SubscribeRequest{
		AccountID: account.ID,
		PlanCode:  "pro-monthly",
		Quantity:  3,
	})

	require.NoError(t, err)
	assert.Equal(t, pro.ID, sub.PlanID)
	assert.Equal(t, int64(3), sub.Quantity)
	require.NotNil(t, account.PlanID)
	assert.Equal(t, pro.ID, *account.PlanID)
	m.gateway.AssertNotCalled(t, "CreateSubscription")
}

func TestSubscribe_RejectsFreePlan(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()
	free := &models.Plan{ID: uuid.New(), Code: "free", Level: 0, Amount: 0}

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "free").Return(free, nil)

	_, err := s.Subscribe(context.Background(), SubscribeRequest{AccountID: account.ID, PlanCode: "free"})
	assertValidationCode(t, err, CodePlanNotPayable)
}

func TestSubscribe_RejectsQuantityAboveMax(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()
	plan := payablePlan("team-monthly", 3)
	plan.MaxQuantity = 5

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "team-monthly").Return(plan, nil)

	_, err := s.Subscribe(context.Background(), SubscribeRequest{
		AccountID: account.ID,
		PlanCode:  "team-monthly",
		Quantity:  6,
	})
	assertValidationCode(t, err, CodeQuantityExceeded)
}

func TestSubscribe_RejectsSamePlanAndQuantity(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()
	plan := payablePlan("pro-monthly", 2)
	current := &models.Subscription{
		ID:       uuid.New(),
		PlanID:   plan.ID,
		Quantity: 2,
		Active:   true,
	}

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "pro-monthly").Return(plan, nil)
	m.subscriptions.On("GetCurrent", mock.Anything, mock.Anything, account.ID).Return(current, nil)

	_, err := s.Subscribe(context.Background(), SubscribeRequest{
		AccountID: account.ID,
		PlanCode:  "pro-monthly",
		Quantity:  2,
	})
	assertValidationCode(t, err, CodeSubscriptionSame)
}

func TestSubscribe_RejectsLevelDecrease(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()
	basic := payablePlan("basic-monthly", 1)
	pro := payablePlan("pro-monthly", 2)
	current := &models.Subscription{
		ID:       uuid.New(),
		PlanID:   pro.ID,
		Quantity: 1,
		Active:   true,
	}

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "basic-monthly").Return(basic, nil)
	m.subscriptions.On("GetCurrent", mock.Anything, mock.Anything, account.ID).Return(current, nil)
	m.plans.On("GetByID", mock.Anything, mock.Anything, pro.ID).Return(pro, nil)

	_, err := s.Subscribe(context.Background(), SubscribeRequest{
		AccountID: account.ID,
		PlanCode:  "basic-monthly",
	})
	assertValidationCode(t, err, CodeLevelDecrease)
	m.gateway.AssertNotCalled(t, "UpdateSubscription")
}

func TestSubscribe_UnknownPlanRejected(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.plans.On("GetByCode", mock.Anything, mock.Anything, "nope").Return(nil, nil)

	_, err := s.Subscribe(context.Background(), SubscribeRequest{AccountID: account.ID, PlanCode: "nope"})
	assertValidationCode(t, err, CodePlanNotFound)
}
