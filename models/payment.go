package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the closed set of payment states.
type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "initiated"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Finalized reports whether the payment has reached a terminal state.
func (s PaymentStatus) Finalized() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// Payment is the one-to-one charge record for a non-cancelled purchase.
// Amount always equals the purchase's gross amount. PlatformShare and
// OrganizerShare are written only on completion and reconcile exactly:
// PlatformShare + OrganizerShare == Amount.
type Payment struct {
	ID             string          `json:"id"`
	PurchaseID     string          `json:"purchase_id"`
	Amount         decimal.Decimal `json:"amount"`
	Status         PaymentStatus   `json:"status"`
	Reference      string          `json:"reference"`   // merchant reference, unique
	TrackingID     string          `json:"tracking_id"` // gateway external reference
	PlatformShare  decimal.Decimal `json:"platform_share"`
	OrganizerShare decimal.Decimal `json:"organizer_share"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	Created        time.Time       `json:"created"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}
