package mockpay

import (
	"context"
	"testing"

	"ticket-marketplace/internal/services/gateway"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockPay_ChargeAndComplete(t *testing.T) {
	m := New()
	ch := make(chan *gateway.Notification, 1)
	m.SetNotificationChannel(ch)

	session, err := m.CreateCharge(context.Background(), gateway.ChargeRequest{
		Amount:    decimal.RequireFromString("42.00"),
		Currency:  "KES",
		Reference: "TM-TEST01",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.TrackingID)
	assert.NotEmpty(t, session.RedirectURL)

	require.NoError(t, m.Complete("TM-TEST01", decimal.Decimal{}))

	n := <-ch
	assert.Equal(t, gateway.OutcomeCompleted, n.Outcome)
	assert.Equal(t, "TM-TEST01", n.Reference)
	assert.Equal(t, session.TrackingID, n.TrackingID)
	assert.True(t, n.Amount.Equal(decimal.RequireFromString("42.00")), "recorded charge amount is used by default")
}

func TestMockPay_ChargeIsIdempotentPerReference(t *testing.T) {
	m := New()

	first, err := m.CreateCharge(context.Background(), gateway.ChargeRequest{Reference: "TM-TEST02"})
	require.NoError(t, err)
	second, err := m.CreateCharge(context.Background(), gateway.ChargeRequest{Reference: "TM-TEST02"})
	require.NoError(t, err)

	assert.Equal(t, first.TrackingID, second.TrackingID)
}

func TestMockPay_FailCarriesReason(t *testing.T) {
	m := New()
	ch := make(chan *gateway.Notification, 1)
	m.SetNotificationChannel(ch)

	_, err := m.CreateCharge(context.Background(), gateway.ChargeRequest{Reference: "TM-TEST03"})
	require.NoError(t, err)

	require.NoError(t, m.Fail("TM-TEST03", "card declined"))

	n := <-ch
	assert.Equal(t, gateway.OutcomeFailed, n.Outcome)
	assert.Equal(t, "card declined", n.Reason)
}

func TestMockPay_VerifyCallback(t *testing.T) {
	m := New()
	ctx := context.Background()

	session, err := m.CreateCharge(ctx, gateway.ChargeRequest{Reference: "TM-TEST04"})
	require.NoError(t, err)

	assert.NoError(t, m.VerifyCallback(ctx, &gateway.Notification{
		Reference:  "TM-TEST04",
		TrackingID: session.TrackingID,
	}, nil, ""))

	assert.Error(t, m.VerifyCallback(ctx, &gateway.Notification{
		Reference:  "TM-FORGED",
		TrackingID: session.TrackingID,
	}, nil, ""), "callbacks for charges this gateway never opened are rejected")

	assert.Error(t, m.VerifyCallback(ctx, &gateway.Notification{
		Reference:  "TM-TEST04",
		TrackingID: "mock-999999",
	}, nil, ""))
}

func TestMockPay_UnknownReferenceRejected(t *testing.T) {
	m := New()
	ch := make(chan *gateway.Notification, 1)
	m.SetNotificationChannel(ch)

	assert.Error(t, m.Complete("TM-NOPE", decimal.Decimal{}))
	assert.Error(t, m.Fail("TM-NOPE", "x"))
}
