// Package mockpay is an in-process payment gateway for development and tests.
// Charges succeed immediately and settle when Complete or Fail is called,
// which the admin surface exposes in non-production environments.
package mockpay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticket-marketplace/internal/services/gateway"

	"github.com/shopspring/decimal"
)

type charge struct {
	reference  string
	trackingID string
	amount     decimal.Decimal
}

type MockPay struct {
	mu      sync.Mutex
	charges map[string]*charge // keyed by merchant reference
	seq     int
	ch      chan *gateway.Notification
}

func New() *MockPay {
	return &MockPay{charges: make(map[string]*charge)}
}

func (m *MockPay) Provider() gateway.Provider {
	return gateway.ProviderMock
}

func (m *MockPay) CreateCharge(_ context.Context, req gateway.ChargeRequest) (*gateway.ChargeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.charges[req.Reference]
	if !ok {
		m.seq++
		c = &charge{
			reference:  req.Reference,
			trackingID: fmt.Sprintf("mock-%06d", m.seq),
			amount:     req.Amount,
		}
		m.charges[req.Reference] = c
	}

	return &gateway.ChargeSession{
		TrackingID:  c.trackingID,
		RedirectURL: fmt.Sprintf("/mockpay/checkout/%s", c.trackingID),
	}, nil
}

// Complete settles a charge as paid. The amount override lets tests simulate
// a gateway reporting a different amount than was charged; pass the zero
// value to use the recorded one.
func (m *MockPay) Complete(reference string, amount decimal.Decimal) error {
	return m.notify(reference, gateway.OutcomeCompleted, "", amount)
}

func (m *MockPay) Fail(reference, reason string) error {
	return m.notify(reference, gateway.OutcomeFailed, reason, decimal.Decimal{})
}

func (m *MockPay) notify(reference, outcome, reason string, amount decimal.Decimal) error {
	m.mu.Lock()
	c, ok := m.charges[reference]
	ch := m.ch
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("mockpay: unknown reference %q", reference)
	}
	if ch == nil {
		return fmt.Errorf("mockpay: no notification channel set")
	}

	if amount.IsZero() {
		amount = c.amount
	}
	ch <- &gateway.Notification{
		Reference:  c.reference,
		TrackingID: c.trackingID,
		Amount:     amount,
		Outcome:    outcome,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	}
	return nil
}

// VerifyCallback accepts callbacks only for charges this gateway opened, and
// only when the tracking id matches the one it assigned.
func (m *MockPay) VerifyCallback(_ context.Context, n *gateway.Notification, _ []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.charges[n.Reference]
	if !ok {
		return fmt.Errorf("mockpay: unknown reference %q", n.Reference)
	}
	if c.trackingID != n.TrackingID {
		return fmt.Errorf("mockpay: tracking id mismatch for %q", n.Reference)
	}
	return nil
}

func (m *MockPay) SetNotificationChannel(ch chan *gateway.Notification) {
	m.mu.Lock()
	m.ch = ch
	m.mu.Unlock()
}

func (m *MockPay) Close() {}
