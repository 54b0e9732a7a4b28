package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Provider string

const (
	ProviderPesapal Provider = "pesapal"
	ProviderMock    Provider = "mock"
)

type ChargeRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Reference   string
	Description string
	BuyerEmail  string
	BuyerPhone  string
}

// ChargeSession is the provider-side handle for a charge: the tracking id the
// provider assigned and the URL the buyer completes payment at.
type ChargeSession struct {
	TrackingID  string
	RedirectURL string
}

const (
	OutcomeCompleted = "COMPLETED"
	OutcomeFailed    = "FAILED"
)

// Notification is a provider callback, normalized. Reference is the merchant
// reference from the original charge; Outcome is one of the Outcome constants.
type Notification struct {
	Reference  string
	TrackingID string
	Amount     decimal.Decimal
	Outcome    string
	Reason     string
	Timestamp  time.Time
}

// Gateway is a payment provider. Implementations push asynchronous payment
// outcomes into the channel set via SetNotificationChannel.
//
// VerifyCallback authenticates a callback delivered over the public HTTP
// endpoint before it is applied: body and signature carry the raw request for
// providers that sign their callbacks, n carries the parsed claim for
// providers that confirm against their transaction API instead. A non-nil
// error means the callback must be discarded.
type Gateway interface {
	Provider() Provider
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeSession, error)
	VerifyCallback(ctx context.Context, n *Notification, body []byte, signature string) error
	SetNotificationChannel(ch chan *Notification)
	Close()
}
