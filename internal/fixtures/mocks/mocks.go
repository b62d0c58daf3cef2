// Package mocks holds testify mocks of the service collaborators.
package mocks

import (
	"context"

	"github.com/amirasaad/deposit/pkg/bambora"
	"github.com/amirasaad/deposit/pkg/domain/payment"
	"github.com/stretchr/testify/mock"
)

type cleanuper interface {
	mock.TestingT
	Cleanup(func())
}

// MockPaymentRepository mocks repository/payment.Repository.
type MockPaymentRepository struct {
	mock.Mock
}

// NewMockPaymentRepository registers expectation checks on t.
func NewMockPaymentRepository(t cleanuper) *MockPaymentRepository {
	m := &MockPaymentRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) Get(ctx context.Context, id int64) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) AppendAttempt(ctx context.Context, paymentID int64, a payment.Attempt) (bool, error) {
	args := m.Called(ctx, paymentID, a)
	return args.Bool(0), args.Error(1)
}

// MockDispatcher mocks workflow.Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

// NewMockDispatcher registers expectation checks on t.
func NewMockDispatcher(t cleanuper) *MockDispatcher {
	m := &MockDispatcher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockDispatcher) Push(ctx context.Context, payload string, paymentID int64) error {
	args := m.Called(ctx, payload, paymentID)
	return args.Error(0)
}

// MockSessionInitiator mocks the checkout session initiator.
type MockSessionInitiator struct {
	mock.Mock
}

// NewMockSessionInitiator registers expectation checks on t.
func NewMockSessionInitiator(t cleanuper) *MockSessionInitiator {
	m := &MockSessionInitiator{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionInitiator) CreateSession(ctx context.Context, req bambora.SessionRequest) (*bambora.SessionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bambora.SessionResponse), args.Error(1)
}
