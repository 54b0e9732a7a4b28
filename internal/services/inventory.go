package services

import (
	"context"
	"log/slog"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/monitoring"
)

// InventoryLedger owns all mutation of ticket stock counters. Methods take
// the Store explicitly so the caller decides the transaction boundary; the
// purchase state machine runs Reserve inside the same transaction that
// creates the purchase record.
type InventoryLedger struct{}

// Reserve atomically checks and decrements remaining stock. Two concurrent
// reservations on the same ticket class can never together exceed the total:
// the decrement carries its own stock guard and the store serializes writers.
func (InventoryLedger) Reserve(ctx context.Context, st store.Store, classID string, qty int) error {
	if qty < 1 {
		return status.ErrInvalidQuantity
	}

	ok, err := st.DecrementStock(ctx, classID, qty)
	if err != nil {
		return err
	}
	if !ok {
		// The guarded update also misses when the class does not exist.
		if _, err := st.TicketClassByID(ctx, classID); err != nil {
			return err
		}
		monitoring.TrackReservation("insufficient")
		return status.ErrInsufficientStock
	}

	monitoring.TrackReservation("reserved")
	return nil
}

// Release returns previously reserved stock. The counter is clamped at the
// total; a release that would push it past the total means something released
// twice, which is ledger corruption and is reported loudly instead of being
// swallowed.
func (InventoryLedger) Release(ctx context.Context, st store.Store, classID string, qty int) error {
	if qty < 1 {
		return status.ErrInvalidQuantity
	}

	class, err := st.TicketClassByID(ctx, classID)
	if err != nil {
		return err
	}

	remaining := class.RemainingQuantity + qty
	if remaining > class.TotalQuantity {
		if err := st.SetRemainingStock(ctx, classID, class.TotalQuantity); err != nil {
			return err
		}
		monitoring.TrackLedgerCorruption()
		slog.Error("stock release exceeds total quantity",
			"ticket_class", classID,
			"remaining", class.RemainingQuantity,
			"release", qty,
			"total", class.TotalQuantity,
		)
		return status.ErrLedgerCorruption
	}

	return st.SetRemainingStock(ctx, classID, remaining)
}
