// Package mocks provides shared mock implementations for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gobill/billing-service/internal/domain/ports"
)

// MockPaymentGateway mocks the remote payment provider.
type MockPaymentGateway struct {
	mock.Mock
}

var _ ports.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) CreateCustomer(ctx context.Context, req ports.CreateCustomerRequest) (*ports.RemoteCustomer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteCustomer), args.Error(1)
}

func (m *MockPaymentGateway) UpdateCustomerSource(ctx context.Context, customerID, source string) error {
	args := m.Called(ctx, customerID, source)
	return args.Error(0)
}

func (m *MockPaymentGateway) GetCharge(ctx context.Context, id string) (*ports.RemoteCharge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteCharge), args.Error(1)
}

func (m *MockPaymentGateway) GetCustomer(ctx context.Context, id string) (*ports.RemoteCustomer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteCustomer), args.Error(1)
}

func (m *MockPaymentGateway) GetCard(ctx context.Context, customerID, cardID string) (*ports.RemoteCard, error) {
	args := m.Called(ctx, customerID, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteCard), args.Error(1)
}

func (m *MockPaymentGateway) GetSubscription(ctx context.Context, id string) (*ports.RemoteSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteSubscription), args.Error(1)
}

func (m *MockPaymentGateway) GetInvoice(ctx context.Context, id string) (*ports.RemoteInvoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteInvoice), args.Error(1)
}

func (m *MockPaymentGateway) GetPlan(ctx context.Context, code string) (*ports.RemotePlan, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemotePlan), args.Error(1)
}

func (m *MockPaymentGateway) GetCoupon(ctx context.Context, id string) (*ports.RemoteCoupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteCoupon), args.Error(1)
}

func (m *MockPaymentGateway) GetDispute(ctx context.Context, id string) (*ports.RemoteDispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteDispute), args.Error(1)
}

func (m *MockPaymentGateway) CreateSubscription(ctx context.Context, req ports.SubscriptionCreateRequest) (*ports.RemoteSubscription, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteSubscription), args.Error(1)
}

func (m *MockPaymentGateway) UpdateSubscription(ctx context.Context, id string, req ports.SubscriptionUpdateRequest) (*ports.RemoteSubscription, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteSubscription), args.Error(1)
}

func (m *MockPaymentGateway) CancelSubscriptionAtPeriodEnd(ctx context.Context, id string) (*ports.RemoteSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteSubscription), args.Error(1)
}

func (m *MockPaymentGateway) CreateCharge(ctx context.Context, req ports.ChargeCreateRequest) (*ports.RemoteCharge, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemoteCharge), args.Error(1)
}

func (m *MockPaymentGateway) ListCharges(ctx context.Context, filter ports.ChargeListFilter) ([]*ports.RemoteCharge, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ports.RemoteCharge), args.Error(1)
}

func (m *MockPaymentGateway) CreatePlan(ctx context.Context, req ports.PlanCreateRequest) (*ports.RemotePlan, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.RemotePlan), args.Error(1)
}

func (m *MockPaymentGateway) ListPlans(ctx context.Context) ([]*ports.RemotePlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ports.RemotePlan), args.Error(1)
}
