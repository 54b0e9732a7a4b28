package store

import (
	"context"
	"time"

	"ticket-marketplace/models"

	"github.com/shopspring/decimal"
)

// PurchaseFilter narrows admin purchase listings.
type PurchaseFilter struct {
	Status  models.PurchaseStatus
	EventID string
	Email   string
	Page    int
	Limit   int
}

// PaymentFilter narrows admin payment listings.
type PaymentFilter struct {
	Status    models.PaymentStatus
	Reference string
	Page      int
	Limit     int
}

// DashboardStats is the read-only aggregate consumed by the admin surface.
// It never feeds back into core state.
type DashboardStats struct {
	EventsByStatus    map[models.EventStatus]int    `json:"events_by_status"`
	PurchasesByStatus map[models.PurchaseStatus]int `json:"purchases_by_status"`
	SettledPayments   int                           `json:"settled_payments"`
	GrossVolume       decimal.Decimal               `json:"gross_volume"`
	PlatformRevenue   decimal.Decimal               `json:"platform_revenue"`
	OrganizerRevenue  decimal.Decimal               `json:"organizer_revenue"`
}

// Store is the persistence boundary for the core engine. RunInTransaction
// yields a transaction-scoped Store; every mutation inside the callback is
// applied atomically or not at all.
type Store interface {
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Events.
	EventByID(ctx context.Context, id string) (*models.Event, error)
	// CompletionCandidates returns approved events whose event_date is on or
	// before the given ISO date. The sweeper applies the exact end-instant
	// predicate on top of this.
	CompletionCandidates(ctx context.Context, maxDate string) ([]models.Event, error)
	// MarkEventsCompleted transitions the given events to completed, guarded
	// on status=approved so rows already completed count zero.
	MarkEventsCompleted(ctx context.Context, ids []string) (int, error)

	// Ticket classes. The stock counter is written only through
	// DecrementStock / SetRemainingStock, called by the inventory ledger.
	TicketClassByID(ctx context.Context, id string) (*models.TicketClass, error)
	DecrementStock(ctx context.Context, classID string, qty int) (bool, error)
	SetRemainingStock(ctx context.Context, classID string, remaining int) error

	// Organizers.
	OrganizerByID(ctx context.Context, id string) (*models.Organizer, error)

	// Purchases.
	CreatePurchase(ctx context.Context, p *models.Purchase) error
	PurchaseByID(ctx context.Context, id string) (*models.Purchase, error)
	ListPurchases(ctx context.Context, f PurchaseFilter) ([]models.Purchase, int, error)
	SetPurchaseStatus(ctx context.Context, id string, s models.PurchaseStatus) error
	SetPurchaseQRCode(ctx context.Context, id, qr string) error
	DeletePurchase(ctx context.Context, id string) error

	// Payments.
	CreatePayment(ctx context.Context, p *models.Payment) error
	PaymentByID(ctx context.Context, id string) (*models.Payment, error)
	PaymentByPurchase(ctx context.Context, purchaseID string) (*models.Payment, error)
	PaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, int, error)
	SetPaymentTrackingID(ctx context.Context, id, trackingID string) error
	CompletePayment(ctx context.Context, id, trackingID string, platformShare, organizerShare decimal.Decimal, at time.Time) error
	FailPayment(ctx context.Context, id, reason string) error

	// Analytics (read-only).
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}
