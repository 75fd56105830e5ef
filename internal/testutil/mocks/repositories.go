package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
)

// MockAccountRepository mocks account persistence.
type MockAccountRepository struct {
	mock.Mock
}

var _ ports.AccountRepository = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*models.Account, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByCustomerRef(ctx context.Context, db ports.DBTX, customerRef string) (*models.Account, error) {
	args := m.Called(ctx, db, customerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, tx ports.DBTX, account *models.Account) error {
	args := m.Called(ctx, tx, account)
	return args.Error(0)
}

// MockPlanRepository mocks plan persistence.
type MockPlanRepository struct {
	mock.Mock
}

var _ ports.PlanRepository = (*MockPlanRepository)(nil)

func (m *MockPlanRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*models.Plan, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) GetByCode(ctx context.Context, db ports.DBTX, code string) (*models.Plan, error) {
	args := m.Called(ctx, db, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) List(ctx context.Context, db ports.DBTX) ([]*models.Plan, error) {
	args := m.Called(ctx, db)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) ListActive(ctx context.Context, db ports.DBTX) ([]*models.Plan, error) {
	args := m.Called(ctx, db)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Plan), args.Error(1)
}

func (m *MockPlanRepository) Update(ctx context.Context, tx ports.DBTX, plan *models.Plan) error {
	args := m.Called(ctx, tx, plan)
	return args.Error(0)
}

// MockSubscriptionRepository mocks subscription persistence.
type MockSubscriptionRepository struct {
	mock.Mock
}

var _ ports.SubscriptionRepository = (*MockSubscriptionRepository)(nil)

func (m *MockSubscriptionRepository) Create(ctx context.Context, tx ports.DBTX, sub *models.Subscription) error {
	args := m.Called(ctx, tx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, tx ports.DBTX, sub *models.Subscription) error {
	args := m.Called(ctx, tx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByRef(ctx context.Context, db ports.DBTX, accountID uuid.UUID, ref string) (*models.Subscription, error) {
	args := m.Called(ctx, db, accountID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetCurrent(ctx context.Context, db ports.DBTX, accountID uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, db, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) HasAnyForAccount(ctx context.Context, db ports.DBTX, accountID uuid.UUID) (bool, error) {
	args := m.Called(ctx, db, accountID)
	return args.Bool(0), args.Error(1)
}

// MockChargeRepository mocks charge persistence.
type MockChargeRepository struct {
	mock.Mock
}

var _ ports.ChargeRepository = (*MockChargeRepository)(nil)

func (m *MockChargeRepository) Create(ctx context.Context, tx ports.DBTX, charge *models.Charge) error {
	args := m.Called(ctx, tx, charge)
	return args.Error(0)
}

func (m *MockChargeRepository) Update(ctx context.Context, tx ports.DBTX, charge *models.Charge) error {
	args := m.Called(ctx, tx, charge)
	return args.Error(0)
}

func (m *MockChargeRepository) GetByRef(ctx context.Context, db ports.DBTX, accountID uuid.UUID, ref string) (*models.Charge, error) {
	args := m.Called(ctx, db, accountID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Charge), args.Error(1)
}

func (m *MockChargeRepository) ListByAccount(ctx context.Context, db ports.DBTX, accountID uuid.UUID) ([]*models.Charge, error) {
	args := m.Called(ctx, db, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Charge), args.Error(1)
}
