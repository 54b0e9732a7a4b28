package models

import (
	"github.com/shopspring/decimal"
)

// OrganizerStatus is the closed set of organizer account states.
type OrganizerStatus string

const (
	OrganizerPending   OrganizerStatus = "pending"
	OrganizerApproved  OrganizerStatus = "approved"
	OrganizerRejected  OrganizerStatus = "rejected"
	OrganizerSuspended OrganizerStatus = "suspended"
)

// Organizer owns events and receives the organizer share of each settlement.
// CommissionRate is the platform's fraction in [0, 1).
type Organizer struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Status         OrganizerStatus `json:"status"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	MerchantRef    string          `json:"merchant_ref,omitempty"`
}
