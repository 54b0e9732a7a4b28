package pesapal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"ticket-marketplace/internal/services/gateway"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_ToNotification(t *testing.T) {
	p := &payload{
		Reference:  "TM-ABC123",
		TrackingID: "7e5a-41c9",
		Amount:     decimal.RequireFromString("150.00"),
		StatusDesc: "Completed",
		CreatedAt:  "2026-03-14T12:30:00",
	}

	n, err := p.toNotification()
	require.NoError(t, err)

	assert.Equal(t, gateway.OutcomeCompleted, n.Outcome)
	assert.Equal(t, "TM-ABC123", n.Reference)
	assert.Equal(t, "7e5a-41c9", n.TrackingID)
	assert.True(t, n.Amount.Equal(decimal.RequireFromString("150.00")))
	assert.Equal(t, 2026, n.Timestamp.Year())
}

func TestPayload_ToNotificationFailure(t *testing.T) {
	p := &payload{
		Reference:   "TM-DEF456",
		StatusDesc:  "FAILED",
		Description: "card declined",
	}

	n, err := p.toNotification()
	require.NoError(t, err)

	assert.Equal(t, gateway.OutcomeFailed, n.Outcome)
	assert.Equal(t, "card declined", n.Reason)
}

func TestPayload_ToNotificationUnknownStatus(t *testing.T) {
	p := &payload{Reference: "TM-GHI789", StatusDesc: "PENDING"}

	_, err := p.toNotification()
	assert.Error(t, err)
}

func TestVerifyCallback_SignedBody(t *testing.T) {
	p := &Pesapal{webhookSecret: "ipn-secret"}
	body := []byte(`{"merchant_reference":"TM-ABC123","order_tracking_id":"7e5a-41c9","amount":150,"payment_status":"COMPLETED"}`)
	n := &gateway.Notification{Reference: "TM-ABC123", TrackingID: "7e5a-41c9"}
	ctx := context.Background()

	sig := Hmac256(body, []byte("ipn-secret"))
	assert.NoError(t, p.VerifyCallback(ctx, n, body, sig))

	// A forged body is rejected, as is an unsigned one.
	assert.Error(t, p.VerifyCallback(ctx, n, []byte(`{"payment_status":"FAILED"}`), sig))
	assert.Error(t, p.VerifyCallback(ctx, n, body, ""))
	assert.Error(t, p.VerifyCallback(ctx, n, body, Hmac256(body, []byte("other-secret"))))
}

func TestVerifyCallback_UnsignedConfirmsAgainstTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/Transactions/GetTransactionStatus" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{
			"merchant_reference": "TM-ABC123",
			"order_tracking_id": "7e5a-41c9",
			"amount": 150.00,
			"payment_status_description": "Completed",
			"created_date": "2026-03-14T12:30:00"
		}`)
	}))
	defer srv.Close()

	p := &Pesapal{client: newClient(context.Background(), &ClientConfig{BaseURL: srv.URL})}
	ctx := context.Background()

	genuine := &gateway.Notification{
		Reference:  "TM-ABC123",
		TrackingID: "7e5a-41c9",
		Amount:     decimal.RequireFromString("150.00"),
		Outcome:    gateway.OutcomeCompleted,
	}
	assert.NoError(t, p.VerifyCallback(ctx, genuine, nil, ""))

	forged := *genuine
	forged.Outcome = gateway.OutcomeFailed
	assert.Error(t, p.VerifyCallback(ctx, &forged, nil, ""), "claimed outcome contradicts the transaction state")

	wrongAmount := *genuine
	wrongAmount.Amount = decimal.RequireFromString("15.00")
	assert.Error(t, p.VerifyCallback(ctx, &wrongAmount, nil, ""))
}

func TestSubscribeChannelHandoff(t *testing.T) {
	s := &subscribe{}

	// Before a consumer registers, deliveries are dropped, not panicked on.
	s.deliver(&gateway.Notification{Reference: "TM-EARLY"})

	ch := make(chan *gateway.Notification, 8)
	received := 0
	drained := make(chan struct{})
	go func() {
		for range ch {
			received++
		}
		close(drained)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.deliver(&gateway.Notification{Reference: fmt.Sprintf("TM-%03d", i)})
		}(i)
	}
	s.setChannel(ch)
	wg.Wait()
	close(ch)
	<-drained

	assert.LessOrEqual(t, received, 8)
}
