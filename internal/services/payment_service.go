package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ticket-marketplace/internal/clock"
	"ticket-marketplace/internal/services/gateway"
	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"
	"ticket-marketplace/monitoring"
	"ticket-marketplace/utils"

	"github.com/shopspring/decimal"
)

// PaymentService reconciles payments with the external gateway. Every
// notification is keyed by the merchant reference, and replays of an already
// applied notification are acknowledged without re-running settlement.
type PaymentService struct {
	store     store.Store
	purchases *PurchaseService
	ledger    InventoryLedger
	gateway   gateway.Gateway
	notifier  *Notifier
	breaker   *utils.CircuitBreaker
	currency  string
	clock     clock.Clock
}

func NewPaymentService(st store.Store, purchases *PurchaseService, gw gateway.Gateway, notifier *Notifier, currency string, clk clock.Clock) *PaymentService {
	return &PaymentService{
		store:     st,
		purchases: purchases,
		gateway:   gw,
		notifier:  notifier,
		breaker:   utils.NewCircuitBreaker("payment-gateway"),
		currency:  currency,
		clock:     clk,
	}
}

type InitiateResult struct {
	Payment     *models.Payment `json:"payment"`
	RedirectURL string          `json:"redirect_url"`
}

// Initiate opens a payment for a pending purchase. Calling it again for the
// same purchase returns the existing initiated payment and a fresh gateway
// session instead of creating a duplicate; a finalized payment blocks any
// further attempt.
func (s *PaymentService) Initiate(ctx context.Context, purchaseID string) (*InitiateResult, error) {
	purchase, err := s.store.PurchaseByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.Status != models.PurchasePending {
		return nil, status.ErrPurchaseNotPending
	}

	payment, err := s.store.PaymentByPurchase(ctx, purchase.ID)
	if err != nil && !errors.Is(err, status.ErrPaymentNotFound) {
		return nil, err
	}
	if payment != nil && payment.Status.Finalized() {
		return nil, status.ErrPaymentAlreadyExists
	}

	if payment == nil {
		code, err := utils.GenerateCode(6)
		if err != nil {
			return nil, fmt.Errorf("payment: generate reference: %w", err)
		}
		payment = &models.Payment{
			PurchaseID: purchase.ID,
			Amount:     purchase.GrossAmount,
			Status:     models.PaymentInitiated,
			Reference:  "TM-" + code,
		}
		if err := s.store.CreatePayment(ctx, payment); err != nil {
			return nil, err
		}
	}

	session, err := s.requestChargeSession(ctx, purchase, payment)
	if err != nil {
		return nil, err
	}

	if session.TrackingID != "" && session.TrackingID != payment.TrackingID {
		if err := s.store.SetPaymentTrackingID(ctx, payment.ID, session.TrackingID); err != nil {
			return nil, err
		}
		payment.TrackingID = session.TrackingID
	}

	slog.Info("payment initiated",
		"payment", payment.ID,
		"purchase", purchase.ID,
		"reference", payment.Reference,
		"amount", payment.Amount.StringFixed(2),
	)
	return &InitiateResult{Payment: payment, RedirectURL: session.RedirectURL}, nil
}

func (s *PaymentService) requestChargeSession(ctx context.Context, purchase *models.Purchase, payment *models.Payment) (*gateway.ChargeSession, error) {
	result, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return s.gateway.CreateCharge(ctx, gateway.ChargeRequest{
			Amount:      payment.Amount,
			Currency:    s.currency,
			Reference:   payment.Reference,
			Description: fmt.Sprintf("%d ticket(s) for event %s", purchase.Quantity, purchase.EventID),
			BuyerEmail:  purchase.BuyerEmail,
			BuyerPhone:  purchase.BuyerPhone,
		})
	})
	if err != nil {
		monitoring.TrackGatewayCall(string(s.gateway.Provider()), "error")
		return nil, fmt.Errorf("payment: create charge: %w", err)
	}
	monitoring.TrackGatewayCall(string(s.gateway.Provider()), "ok")
	return result.(*gateway.ChargeSession), nil
}

type ConfirmInput struct {
	Reference  string
	TrackingID string
	Amount     decimal.Decimal
}

// Confirm applies a completion notification. The settlement split and both
// status writes happen in one transaction so a completed payment and a paid
// purchase always appear together. A replay of an already completed payment
// with the same tracking id is acknowledged silently; a notification whose
// amount does not match the recorded charge is rejected without touching any
// state. A capture whose purchase was cancelled in the meantime is still
// recorded on the payment and acknowledged, so the gateway stops retrying,
// but it is flagged for manual review instead of marking the purchase paid.
func (s *PaymentService) Confirm(ctx context.Context, in ConfirmInput) error {
	payment, err := s.store.PaymentByReference(ctx, in.Reference)
	if err != nil {
		return err
	}

	if payment.Status == models.PaymentCompleted && payment.TrackingID == in.TrackingID {
		return nil
	}
	if payment.Status.Finalized() {
		return status.ErrAlreadyFinalized
	}

	if !in.Amount.Equal(payment.Amount) {
		monitoring.TrackAmountMismatch()
		slog.Error("payment amount mismatch",
			"payment", payment.ID,
			"reference", payment.Reference,
			"expected", payment.Amount.StringFixed(2),
			"received", in.Amount.StringFixed(2),
		)
		return status.ErrAmountMismatch
	}

	var purchase *models.Purchase
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		purchase, err = tx.PurchaseByID(ctx, payment.PurchaseID)
		if err != nil {
			return err
		}

		event, err := tx.EventByID(ctx, purchase.EventID)
		if err != nil {
			return err
		}
		organizer, err := tx.OrganizerByID(ctx, event.OrganizerID)
		if err != nil {
			return err
		}

		platformShare, organizerShare, err := SplitAmount(payment.Amount, organizer.CommissionRate)
		if err != nil {
			return err
		}

		trackingID := in.TrackingID
		if trackingID == "" {
			trackingID = payment.TrackingID
		}
		if err := tx.CompletePayment(ctx, payment.ID, trackingID, platformShare, organizerShare, s.clock.Now()); err != nil {
			return err
		}
		if purchase.Status != models.PurchasePending {
			// Money moved for a purchase that is no longer pending. The
			// capture is recorded and acknowledged, never re-reserved.
			return nil
		}
		return tx.SetPurchaseStatus(ctx, purchase.ID, models.PurchasePaid)
	})
	if err != nil {
		return err
	}

	if purchase.Status != models.PurchasePending {
		monitoring.TrackOrphanedCapture()
		slog.Error("payment captured for a non-pending purchase, manual review required",
			"payment", payment.ID,
			"reference", payment.Reference,
			"purchase", purchase.ID,
			"purchase_status", string(purchase.Status),
			"amount", payment.Amount.StringFixed(2),
		)
		return nil
	}

	monitoring.TrackSettlement(payment.Amount.InexactFloat64())
	slog.Info("payment completed",
		"payment", payment.ID,
		"reference", payment.Reference,
		"purchase", purchase.ID,
		"amount", payment.Amount.StringFixed(2),
	)
	s.notifier.PaymentCompleted(purchase.ID, payment.Reference, payment.Amount)
	return nil
}

// Fail finalizes a failed payment and cancels its purchase, which releases
// the reserved stock back to the ledger. Both writes share one transaction.
func (s *PaymentService) Fail(ctx context.Context, reference, reason string) error {
	payment, err := s.store.PaymentByReference(ctx, reference)
	if err != nil {
		return err
	}
	if payment.Status.Finalized() {
		return status.ErrAlreadyFinalized
	}

	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.FailPayment(ctx, payment.ID, reason); err != nil {
			return err
		}
		return s.purchases.CancelTx(ctx, tx, payment.PurchaseID)
	})
	if err != nil {
		return err
	}

	slog.Info("payment failed", "payment", payment.ID, "reference", payment.Reference, "reason", reason)
	s.notifier.PaymentFailed(payment.PurchaseID, payment.Reference, reason)
	return nil
}

// Refund moves a paid purchase to refunded and returns its tickets to the
// pool. The payment record keeps its completed status; refunds are tracked
// on the purchase. Refunding an already refunded purchase is a no-op.
func (s *PaymentService) Refund(ctx context.Context, paymentID string) error {
	payment, err := s.store.PaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.Status != models.PaymentCompleted {
		return status.ErrPaymentNotCompleted
	}

	var refunded bool
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		purchase, err := tx.PurchaseByID(ctx, payment.PurchaseID)
		if err != nil {
			return err
		}
		switch purchase.Status {
		case models.PurchaseRefunded:
			return nil
		case models.PurchasePaid:
		default:
			return status.ErrNotPaid
		}

		if err := tx.SetPurchaseStatus(ctx, purchase.ID, models.PurchaseRefunded); err != nil {
			return err
		}
		refunded = true
		return s.ledger.Release(ctx, tx, purchase.TicketClassID, purchase.Quantity)
	})
	if err != nil {
		return err
	}

	if refunded {
		slog.Info("payment refunded", "payment", payment.ID, "purchase", payment.PurchaseID)
	}
	return nil
}

// List returns payments for the admin surface, filterable by status and
// merchant reference.
func (s *PaymentService) List(ctx context.Context, f store.PaymentFilter) ([]models.Payment, int, error) {
	return s.store.ListPayments(ctx, f)
}

func (s *PaymentService) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	return s.store.PaymentByID(ctx, id)
}

func (s *PaymentService) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	return s.store.PaymentByReference(ctx, reference)
}
