package pesapal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"ticket-marketplace/internal/services/gateway"

	pubnub "github.com/pubnub/go/v7"
	"github.com/shopspring/decimal"
)

type (
	Config struct {
		BaseURL        string `json:"baseUrl" mapstructure:"base_url"`
		ConsumerKey    string `json:"consumerKey" mapstructure:"consumer_key"`
		ConsumerSecret string `json:"consumerSecret" mapstructure:"consumer_secret"`
		CallbackURL    string `json:"callbackUrl" mapstructure:"callback_url"`
		IPNID          string `json:"ipnId" mapstructure:"ipn_id"`
		WebhookSecret  string `json:"webhookSecret" mapstructure:"webhook_secret"`

		PNSubKey    string `json:"pn_subkey" mapstructure:"pn_subkey"`
		PNSubSecret string `json:"pn_subsecret" mapstructure:"pn_subsecret"`
		PNUUID      string `json:"pn_uuid" mapstructure:"pn_uuid"`
		PNChannel   string `json:"pn_channel" mapstructure:"pn_channel"`
		PNCipherKey string `json:"pn_cipherKey" mapstructure:"pn_cipherkey"`
	}

	Pesapal struct {
		webhookSecret string

		pnSubKey    string
		pnSubSecret string
		pnUUID      string
		pnChannels  []string
		pnCipherKey string

		sub *subscribe

		client *Client
	}
)

// payload is the notification shape Pesapal delivers, both over the IPN relay
// channel and from the transaction status endpoint.
type payload struct {
	Reference   string          `json:"merchant_reference"`
	TrackingID  string          `json:"order_tracking_id"`
	Amount      decimal.Decimal `json:"amount"`
	StatusDesc  string          `json:"payment_status_description"`
	Description string          `json:"description"`
	CreatedAt   string          `json:"created_date"`
}

// New authenticates with Pesapal, starts the token refresher, and subscribes
// to the notification relay channel.
func New(ctx context.Context, cfg *Config) (*Pesapal, error) {
	client := newClient(ctx, &ClientConfig{
		BaseURL:        cfg.BaseURL,
		ConsumerKey:    cfg.ConsumerKey,
		ConsumerSecret: cfg.ConsumerSecret,
		CallbackURL:    cfg.CallbackURL,
		IPNID:          cfg.IPNID,
	})

	token, err := client.requestToken(ctx)
	if err != nil {
		return nil, err
	}
	client.setAccessToken(token)

	go client.notifyAccessTokenExpired(ctx)

	p := &Pesapal{
		webhookSecret: cfg.WebhookSecret,

		pnSubKey:    cfg.PNSubKey,
		pnSubSecret: cfg.PNSubSecret,
		pnUUID:      cfg.PNUUID,
		pnChannels:  []string{cfg.PNChannel},
		pnCipherKey: cfg.PNCipherKey,

		client: client,
	}

	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(p.pnUUID))
	pnCfg.SubscribeKey = p.pnSubKey
	pnCfg.CipherKey = p.pnCipherKey
	pnCfg.SecretKey = p.pnSubSecret

	newSub, err := p.newSubscription(ctx, pnCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to Pesapal notification channel: %v", err)
	}

	newSub.pn.AddListener(newSub.lis)
	newSub.pn.Subscribe().Channels(p.pnChannels).Execute()
	p.sub = newSub

	return p, nil
}

type subscribe struct {
	pn  *pubnub.PubNub
	lis *pubnub.Listener

	// mu guards ch, which is set after the subscription is already live.
	mu sync.RWMutex
	ch chan *gateway.Notification
}

func (s *subscribe) setChannel(ch chan *gateway.Notification) {
	s.mu.Lock()
	s.ch = ch
	s.mu.Unlock()
}

// deliver hands a notification to the consumer. Notifications arriving before
// the channel is set are dropped; reconciliation picks them up from the
// transaction status endpoint on the next callback.
func (s *subscribe) deliver(n *gateway.Notification) {
	s.mu.RLock()
	ch := s.ch
	s.mu.RUnlock()
	if ch != nil {
		ch <- n
	}
}

func (p *Pesapal) newSubscription(ctx context.Context, pnCfg *pubnub.Config) (*subscribe, error) {
	sub := &subscribe{
		pn:  pubnub.NewPubNub(pnCfg),
		lis: pubnub.NewListener(),
	}

	go sub.processSubscription(ctx)

	return sub, nil
}

func (s *subscribe) processSubscription(ctx context.Context) error {
	listener := s.lis
	for {
		select {
		case status := <-listener.Status:
			switch status.Category {
			case pubnub.PNConnectedCategory:
				log.Println("connected to pubnub")

			case pubnub.PNReconnectedCategory:
				log.Println("reconnected to pubnub")

			case pubnub.PNDisconnectedCategory:
				log.Println("disconnected from pubnub")

			case pubnub.PNAccessDeniedCategory:
				log.Println("access denied connect to pubnub")

			case pubnub.PNTimeoutCategory:
				log.Println("timeout connect to pubnub")

			default:
				log.Println("pubnub status:", status.Category)
			}

		case message := <-listener.Message:
			log.Println("message received pubnub: ", message.Message)

			raw, ok := message.Message.(string)
			if !ok {
				continue
			}

			var pl payload
			dec := json.NewDecoder(strings.NewReader(raw))
			if err := dec.Decode(&pl); err != nil {
				log.Println(err)
				continue
			}

			n, err := pl.toNotification()
			if err != nil {
				log.Println(err)
				continue
			}
			s.deliver(n)

		case <-ctx.Done():
			log.Println("close subscribe")
			return nil
		}
	}
}

func (p *payload) toNotification() (*gateway.Notification, error) {
	ts, err := time.Parse("2006-01-02T15:04:05", p.CreatedAt)
	if err != nil {
		ts = time.Now().UTC()
	}

	n := &gateway.Notification{
		Reference:  p.Reference,
		TrackingID: p.TrackingID,
		Amount:     p.Amount,
		Timestamp:  ts,
	}

	switch strings.ToUpper(p.StatusDesc) {
	case "COMPLETED":
		n.Outcome = gateway.OutcomeCompleted
	case "FAILED", "INVALID", "REVERSED":
		n.Outcome = gateway.OutcomeFailed
		n.Reason = p.Description
	default:
		return nil, fmt.Errorf("pesapal: unhandled payment status %q", p.StatusDesc)
	}

	return n, nil
}

func (p *Pesapal) Provider() gateway.Provider {
	return gateway.ProviderPesapal
}

func (p *Pesapal) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeSession, error) {
	trackingID, redirectURL, err := p.client.submitOrder(ctx, &orderForm{
		Reference:   req.Reference,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Email:       req.BuyerEmail,
		Phone:       req.BuyerPhone,
	})
	if err != nil {
		return nil, err
	}

	return &gateway.ChargeSession{TrackingID: trackingID, RedirectURL: redirectURL}, nil
}

// CheckTransaction queries the authoritative transaction state, used when a
// callback arrives without a trusted signature.
func (p *Pesapal) CheckTransaction(ctx context.Context, trackingID string) (*gateway.Notification, error) {
	pl, err := p.client.getTransactionStatus(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	return pl.toNotification()
}

// VerifyWebhook checks the signature on a direct IPN callback.
func (p *Pesapal) VerifyWebhook(body []byte, signature string) bool {
	return VerifySignature(body, p.webhookSecret, signature)
}

// VerifyCallback authenticates a direct IPN callback. With a configured
// webhook secret the HMAC signature is required; without one the claimed
// outcome is confirmed against the transaction status endpoint before it is
// trusted.
func (p *Pesapal) VerifyCallback(ctx context.Context, n *gateway.Notification, body []byte, signature string) error {
	if p.webhookSecret != "" {
		if signature == "" {
			return errors.New("pesapal: callback missing signature")
		}
		if !p.VerifyWebhook(body, signature) {
			return errors.New("pesapal: callback signature mismatch")
		}
		return nil
	}

	authoritative, err := p.CheckTransaction(ctx, n.TrackingID)
	if err != nil {
		return fmt.Errorf("pesapal: confirm callback: %w", err)
	}
	if authoritative.Reference != n.Reference ||
		authoritative.Outcome != n.Outcome ||
		!authoritative.Amount.Equal(n.Amount) {
		return errors.New("pesapal: callback does not match transaction state")
	}
	return nil
}

func (p *Pesapal) SetNotificationChannel(ch chan *gateway.Notification) {
	p.sub.setChannel(ch)
}

func (p *Pesapal) Close() {
	p.sub.pn.Unsubscribe().Channels(p.pnChannels).Execute()
}
