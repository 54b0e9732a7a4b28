package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus is the closed set of buyer-order states.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchasePaid      PurchaseStatus = "paid"
	PurchaseCancelled PurchaseStatus = "cancelled"
	PurchaseRefunded  PurchaseStatus = "refunded"
)

// Terminal reports whether the purchase can no longer change state.
func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseCancelled || s == PurchaseRefunded
}

// Purchase is one anonymous buyer order for a ticket class.
// GrossAmount is frozen at reservation time; later price changes to the
// ticket class never affect it.
type Purchase struct {
	ID            string          `json:"id"`
	EventID       string          `json:"event_id"`
	TicketClassID string          `json:"ticket_class_id"`
	Quantity      int             `json:"quantity"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	BuyerName     string          `json:"buyer_name"`
	BuyerEmail    string          `json:"buyer_email"`
	BuyerPhone    string          `json:"buyer_phone"`
	Status        PurchaseStatus  `json:"status"`
	QRCode        string          `json:"qr_code,omitempty"`
	Created       time.Time       `json:"created"`
}
