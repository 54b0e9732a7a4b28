package services

import (
	"context"
	"fmt"
	"log/slog"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"

	"github.com/shopspring/decimal"
)

// PurchaseService is the purchase state machine: pending -> {paid, cancelled},
// paid -> refunded. Paid is reached only through payment reconciliation.
type PurchaseService struct {
	store  store.Store
	ledger InventoryLedger
}

func NewPurchaseService(st store.Store) *PurchaseService {
	return &PurchaseService{store: st}
}

type CreatePurchaseInput struct {
	EventID       string `json:"event_id"`
	TicketClassID string `json:"ticket_class_id"`
	Quantity      int    `json:"quantity"`
	BuyerName     string `json:"buyer_name"`
	BuyerEmail    string `json:"buyer_email"`
	BuyerPhone    string `json:"buyer_phone"`
}

// Create validates the request and runs the reservation and the purchase
// insert as one transactional unit: a failed stock check aborts purchase
// creation, and a failed insert rolls the reservation back. The gross amount
// is frozen here; later price changes never affect existing purchases. The
// event status read happens inside the same transaction, so a purchase racing
// the sweeper sees either the pre- or post-sweep status, never a partial one.
func (s *PurchaseService) Create(ctx context.Context, in CreatePurchaseInput) (*models.Purchase, error) {
	if in.BuyerName == "" || in.BuyerEmail == "" || in.BuyerPhone == "" {
		return nil, status.ErrMissingBuyerInfo
	}
	if in.Quantity < 1 {
		return nil, status.ErrInvalidQuantity
	}

	var purchase *models.Purchase
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		event, err := tx.EventByID(ctx, in.EventID)
		if err != nil {
			return err
		}
		if !event.Status.Purchasable() {
			return status.ErrEventNotPurchasable
		}

		class, err := tx.TicketClassByID(ctx, in.TicketClassID)
		if err != nil {
			return err
		}
		if class.EventID != event.ID {
			return status.ErrTicketMismatch
		}

		if err := s.ledger.Reserve(ctx, tx, class.ID, in.Quantity); err != nil {
			return err
		}

		p := &models.Purchase{
			EventID:       event.ID,
			TicketClassID: class.ID,
			Quantity:      in.Quantity,
			GrossAmount:   class.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
			BuyerName:     in.BuyerName,
			BuyerEmail:    in.BuyerEmail,
			BuyerPhone:    in.BuyerPhone,
			Status:        models.PurchasePending,
		}
		if err := tx.CreatePurchase(ctx, p); err != nil {
			return err
		}

		purchase = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("purchase created",
		"purchase", purchase.ID,
		"event", purchase.EventID,
		"quantity", purchase.Quantity,
		"gross_amount", purchase.GrossAmount.StringFixed(2),
	)
	return purchase, nil
}

// Cancel transitions a pending purchase to cancelled and releases its stock.
// Idempotent: a purchase that is already cancelled or refunded is a no-op,
// not a second release. Paid purchases must go through the refund flow.
func (s *PurchaseService) Cancel(ctx context.Context, id string) error {
	return s.store.RunInTransaction(ctx, func(tx store.Store) error {
		return s.CancelTx(ctx, tx, id)
	})
}

// CancelTx is the cancel path inside an existing transaction. Payment
// reconciliation reuses it when a payment fails, and an external reaper of
// stale pending purchases is expected to call Cancel rather than touching
// inventory itself.
func (s *PurchaseService) CancelTx(ctx context.Context, tx store.Store, id string) error {
	purchase, err := tx.PurchaseByID(ctx, id)
	if err != nil {
		return err
	}

	switch purchase.Status {
	case models.PurchaseCancelled, models.PurchaseRefunded:
		// Stock was already released when the purchase reached this state.
		return nil
	case models.PurchasePaid:
		return status.ErrAlreadyPaid
	}

	if err := tx.SetPurchaseStatus(ctx, purchase.ID, models.PurchaseCancelled); err != nil {
		return err
	}
	return s.ledger.Release(ctx, tx, purchase.TicketClassID, purchase.Quantity)
}

func (s *PurchaseService) GetByID(ctx context.Context, id string) (*models.Purchase, error) {
	return s.store.PurchaseByID(ctx, id)
}

// List returns purchases for the admin surface and for anonymous buyers
// looking up their orders by email.
func (s *PurchaseService) List(ctx context.Context, f store.PurchaseFilter) ([]models.Purchase, int, error) {
	return s.store.ListPurchases(ctx, f)
}

// UpdateStatus is the administrative escape hatch; it does not touch
// inventory and must not be used in place of Cancel or the refund flow.
func (s *PurchaseService) UpdateStatus(ctx context.Context, id string, ps models.PurchaseStatus) error {
	switch ps {
	case models.PurchasePending, models.PurchasePaid, models.PurchaseCancelled, models.PurchaseRefunded:
	default:
		return fmt.Errorf("purchase: unknown status %q", ps)
	}
	return s.store.SetPurchaseStatus(ctx, id, ps)
}

// Delete removes a purchase record entirely (admin only, outside the
// lifecycle; no inventory adjustment).
func (s *PurchaseService) Delete(ctx context.Context, id string) error {
	return s.store.DeletePurchase(ctx, id)
}

// GenerateQRCode issues the entry code for a paid purchase.
func (s *PurchaseService) GenerateQRCode(ctx context.Context, id string) (string, error) {
	purchase, err := s.store.PurchaseByID(ctx, id)
	if err != nil {
		return "", err
	}
	if purchase.Status != models.PurchasePaid {
		return "", status.ErrNotPaid
	}

	qr := fmt.Sprintf("TICKET-%s-%s", purchase.ID, purchase.EventID)
	if err := s.store.SetPurchaseQRCode(ctx, purchase.ID, qr); err != nil {
		return "", err
	}
	return qr, nil
}
