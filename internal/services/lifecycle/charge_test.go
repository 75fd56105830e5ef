package lifecycle

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
)

func TestCreateCharge_Succeeded(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.gateway.On("CreateCharge", mock.Anything, mock.AnythingOfType("ports.ChargeCreateRequest")).
		Return(&ports.RemoteCharge{
			ID:         "ch_1",
			Amount:     2500,
			Currency:   "usd",
			Status:     "succeeded",
			Paid:       true,
			CustomerID: "cus_1",
		}, nil)

	var created *models.Charge
	m.charges.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Charge")).
		Run(func(args mock.Arguments) { created = args.Get(2).(*models.Charge) }).
		Return(nil)

	charge, err := s.CreateCharge(context.Background(), ChargeRequest{
		AccountID:   account.ID,
		Amount:      2500,
		Currency:    "usd",
		Description: "extra seats",
	})

	require.NoError(t, err)
	assert.Equal(t, created, charge)
	assert.Equal(t, "ch_1", charge.ChargeRef)
	assert.Equal(t, models.ChargeSucceeded, charge.Status)
	assert.NotNil(t, charge.ChargedAt)
}

func TestCreateCharge_RejectsNonPositiveAmount(t *testing.T) {
	s, _ := newTestService()

	_, err := s.CreateCharge(context.Background(), ChargeRequest{Amount: 0})
	assertValidationCode(t, err, CodeAmountInvalid)
}

func TestCreateCharge_NeedsCustomerOrSource(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()
	account.CustomerRef = nil

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)

	_, err := s.CreateCharge(context.Background(), ChargeRequest{
		AccountID: account.ID,
		Amount:    2500,
	})
	assertValidationCode(t, err, CodeAccountNotCustomer)
}

func TestListCharges_SyncUpsertsLocalRows(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()
	remotes := []*ports.RemoteCharge{
		{ID: "ch_1", Amount: 2500, Currency: "usd", Status: "succeeded", Paid: true},
		{ID: "ch_2", Amount: 2500, Currency: "usd", Status: "succeeded", AmountRefunded: 2500},
	}
	existing := &models.Charge{ID: account.ID, AccountID: account.ID, ChargeRef: "ch_2", Status: models.ChargeSucceeded}

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.gateway.On("ListCharges", mock.Anything, mock.AnythingOfType("ports.ChargeListFilter")).Return(remotes, nil)
	m.charges.On("GetByRef", mock.Anything, mock.Anything, account.ID, "ch_1").Return(nil, nil)
	m.charges.On("GetByRef", mock.Anything, mock.Anything, account.ID, "ch_2").Return(existing, nil)
	m.charges.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Charge")).Return(nil)
	m.charges.On("Update", mock.Anything, mock.Anything, existing).Return(nil)

	got, err := s.ListCharges(context.Background(), ListChargesRequest{
		AccountID: account.ID,
		Sync:      true,
	})

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, models.ChargeRefunded, existing.Status)
	require.NotNil(t, existing.AmountRefunded)
	assert.Equal(t, int64(2500), *existing.AmountRefunded)
	m.charges.AssertCalled(t, "Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Charge"))
}

func TestListCharges_NoSyncLeavesLocalAlone(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.gateway.On("ListCharges", mock.Anything, mock.AnythingOfType("ports.ChargeListFilter")).
		Return([]*ports.RemoteCharge{{ID: "ch_1"}}, nil)

	got, err := s.ListCharges(context.Background(), ListChargesRequest{AccountID: account.ID})

	require.NoError(t, err)
	assert.Len(t, got, 1)
	m.charges.AssertNotCalled(t, "GetByRef")
}

func TestEnsureCustomer_ForceRecreates(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.gateway.On("CreateCustomer", mock.Anything, mock.AnythingOfType("ports.CreateCustomerRequest")).
		Return(&ports.RemoteCustomer{ID: "cus_fresh"}, nil)
	m.accounts.On("Update", mock.Anything, mock.Anything, account).Return(nil)

	got, err := s.EnsureCustomer(context.Background(), account.ID, true)

	require.NoError(t, err)
	require.NotNil(t, got.CustomerRef)
	assert.Equal(t, "cus_fresh", *got.CustomerRef)
}

func TestEnsureCustomer_ExistingCustomerUntouched(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)

	got, err := s.EnsureCustomer(context.Background(), account.ID, false)

	require.NoError(t, err)
	assert.Equal(t, "cus_1", *got.CustomerRef)
	m.gateway.AssertNotCalled(t, "CreateCustomer")
}

func TestChargeHistory_ReturnsLocalRows(t *testing.T) {
	s, m := newTestService()
	account := customerAccount()
	rows := []*models.Charge{
		{ID: uuid.New(), AccountID: account.ID, ChargeRef: "ch_2", Amount: 4900},
		{ID: uuid.New(), AccountID: account.ID, ChargeRef: "ch_1", Amount: 2500},
	}

	m.accounts.On("GetByID", mock.Anything, mock.Anything, account.ID).Return(account, nil)
	m.charges.On("ListByAccount", mock.Anything, mock.Anything, account.ID).Return(rows, nil)

	got, err := s.ChargeHistory(context.Background(), account.ID)

	require.NoError(t, err)
	assert.Equal(t, rows, got)
	m.gateway.AssertNotCalled(t, "ListCharges")
}

func TestChargeHistory_UnknownAccount(t *testing.T) {
	s, m := newTestService()
	id := uuid.New()

	m.accounts.On("GetByID", mock.Anything, mock.Anything, id).Return(nil, nil)

	_, err := s.ChargeHistory(context.Background(), id)

	assertValidationCode(t, err, CodeAccountNotFound)
}
