package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type ClientConfig struct {
	BaseURL        string `json:"baseUrl" mapstructure:"base_url"`
	ConsumerKey    string `json:"consumerKey" mapstructure:"consumer_key"`
	ConsumerSecret string `json:"consumerSecret" mapstructure:"consumer_secret"`
	CallbackURL    string `json:"callbackUrl" mapstructure:"callback_url"`
	IPNID          string `json:"ipnId" mapstructure:"ipn_id"`
}

type Client struct {
	// baseURL is the base url of the Pesapal API.
	baseURL string

	// consumerKey identifies the merchant account.
	consumerKey string

	// consumerSecret authenticates token requests.
	consumerSecret string

	// callbackURL is where the buyer lands after paying.
	callbackURL string

	// ipnID is the registered instant-payment-notification endpoint id.
	ipnID string

	// accessToken is the bearer token for API calls.
	accessToken string

	// mu guards accessToken.
	mu sync.Mutex

	// toggleTokenRefresher wakes the refresher on a 401.
	toggleTokenRefresher chan struct{}

	hc *http.Client
}

func newClient(_ context.Context, c *ClientConfig) *Client {
	return &Client{
		baseURL:        c.BaseURL,
		consumerKey:    c.ConsumerKey,
		consumerSecret: c.ConsumerSecret,
		callbackURL:    c.CallbackURL,
		ipnID:          c.IPNID,

		// buffered so a 401 never blocks the request path.
		toggleTokenRefresher: make(chan struct{}, 1),

		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// notifyAccessTokenExpired renews the bearer token on a timer and on demand,
// with exponential backoff when the API is unreachable. Pesapal tokens live
// for five minutes.
func (c *Client) notifyAccessTokenExpired(ctx context.Context) {
	ticker := time.NewTicker(4 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return

		case <-ticker.C:

		case <-c.toggleTokenRefresher:
			log.Println("notifyAccessTokenExpired: toggleTokenRefresher => token refreshed")
		}

		backOff := time.Second

	Retry:
		for {
			token, err := c.requestToken(ctx)
			switch err {
			case nil:
				c.setAccessToken(token)

				break Retry

			default:
				log.Printf("notifyAccessTokenExpired: %v", err)
				select {
				case <-ctx.Done():
					return

				case <-time.After(backOff):
					backOff *= 2
				}
			}
		}
	}
}

func (c *Client) setAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

func (c *Client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// requestToken authenticates with the Pesapal API and returns a bearer token.
func (c *Client) requestToken(ctx context.Context) (string, error) {
	body := fmt.Sprintf(`{"consumer_key":%q,"consumer_secret":%q}`, c.consumerKey, c.consumerSecret)
	bodyReader := bytes.NewReader([]byte(body))

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), "/api/Auth/RequestToken"), bodyReader)
	if err != nil {
		return "", fmt.Errorf("requestToken: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("requestToken: http.Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("requestToken: http.StatusCode: %d", resp.StatusCode)
	}

	var reply struct {
		Token     string `json:"token"`
		ExpiryDue string `json:"expiryDate"`
		Status    string `json:"status"`
		Message   string `json:"message"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("requestToken: json.Decode: %v", err)
	}
	if reply.Token == "" {
		return "", fmt.Errorf("requestToken: reply.Status: %v, reply.Message: %v", reply.Status, reply.Message)
	}

	return fmt.Sprintf("Bearer %s", reply.Token), nil
}

type orderForm struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Description string
	Email       string
	Phone       string
}

// submitOrder registers a charge with Pesapal and returns the tracking id and
// the hosted payment page URL.
func (c *Client) submitOrder(ctx context.Context, f *orderForm) (string, string, error) {
	body := fmt.Sprintf(`{"id":%q,"currency":%q,"amount":%s,"description":%q,"callback_url":%q,"notification_id":%q,"billing_address":{"email_address":%q,"phone_number":%q}}`,
		f.Reference, f.Currency, f.Amount.StringFixed(2), f.Description, c.callbackURL, c.ipnID, f.Email, f.Phone)
	bodyReader := bytes.NewReader([]byte(body))

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), "/api/Transactions/SubmitOrderRequest"), bodyReader)
	if err != nil {
		return "", "", fmt.Errorf("submitOrder: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.getAccessToken())

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("submitOrder: http.Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return "", "", errors.New("submitOrder: resp.StatusCode: 401 => Unauthorized")
	}

	var reply struct {
		OrderTrackingID string `json:"order_tracking_id"`
		RedirectURL     string `json:"redirect_url"`
		Status          string `json:"status"`
		Error           *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", "", fmt.Errorf("submitOrder: json.Decode: %w", err)
	}
	if reply.Error != nil {
		return "", "", fmt.Errorf("submitOrder: reply.Error: %v: %v", reply.Error.Code, reply.Error.Message)
	}

	return reply.OrderTrackingID, reply.RedirectURL, nil
}

// getTransactionStatus fetches the authoritative state of a charge.
func (c *Client) getTransactionStatus(ctx context.Context, trackingID string) (*payload, error) {
	_baseURL, _ := url.Parse(c.baseURL)
	endpoint := fmt.Sprintf("%s/api/Transactions/GetTransactionStatus?orderTrackingId=%s", _baseURL.String(), url.QueryEscape(trackingID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("getTransactionStatus: http.NewReq: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.getAccessToken())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getTransactionStatus: http.Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return nil, errors.New("getTransactionStatus: resp.StatusCode: 401 => Unauthorized")
	}

	var p payload
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("getTransactionStatus: json.Decode: %v", err)
	}

	return &p, nil
}
