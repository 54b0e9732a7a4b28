package services

import (
	"context"
	"sync"
	"testing"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryLedger_ReserveDecrementsStock(t *testing.T) {
	st := newFakeStore()
	class := st.addClass(models.TicketClass{TotalQuantity: 10, RemainingQuantity: 10})
	ledger := InventoryLedger{}

	err := ledger.Reserve(context.Background(), st, class.ID, 3)
	require.NoError(t, err)

	got, err := st.TicketClassByID(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.RemainingQuantity)
}

func TestInventoryLedger_ReserveInsufficientStock(t *testing.T) {
	st := newFakeStore()
	class := st.addClass(models.TicketClass{TotalQuantity: 10, RemainingQuantity: 2})
	ledger := InventoryLedger{}

	err := ledger.Reserve(context.Background(), st, class.ID, 3)
	assert.ErrorIs(t, err, status.ErrInsufficientStock)

	got, _ := st.TicketClassByID(context.Background(), class.ID)
	assert.Equal(t, 2, got.RemainingQuantity, "a failed reserve must not touch the counter")
}

func TestInventoryLedger_ReserveUnknownClass(t *testing.T) {
	st := newFakeStore()
	ledger := InventoryLedger{}

	err := ledger.Reserve(context.Background(), st, "missing", 1)
	assert.ErrorIs(t, err, status.ErrTicketClassNotFound)
}

func TestInventoryLedger_ReserveInvalidQuantity(t *testing.T) {
	st := newFakeStore()
	class := st.addClass(models.TicketClass{TotalQuantity: 10, RemainingQuantity: 10})
	ledger := InventoryLedger{}

	assert.ErrorIs(t, ledger.Reserve(context.Background(), st, class.ID, 0), status.ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.Reserve(context.Background(), st, class.ID, -5), status.ErrInvalidQuantity)
}

func TestInventoryLedger_NoOversellUnderConcurrency(t *testing.T) {
	st := newFakeStore()
	class := st.addClass(models.TicketClass{TotalQuantity: 5, RemainingQuantity: 5})
	ledger := InventoryLedger{}

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Reserve(context.Background(), st, class.ID, 1)
		}()
	}
	wg.Wait()
	close(results)

	reserved := 0
	for err := range results {
		if err == nil {
			reserved++
		} else {
			assert.ErrorIs(t, err, status.ErrInsufficientStock)
		}
	}

	assert.Equal(t, 5, reserved, "exactly the available stock must be reserved")

	got, _ := st.TicketClassByID(context.Background(), class.ID)
	assert.Equal(t, 0, got.RemainingQuantity)
}

func TestInventoryLedger_ReleaseRestoresStock(t *testing.T) {
	st := newFakeStore()
	class := st.addClass(models.TicketClass{TotalQuantity: 10, RemainingQuantity: 6})
	ledger := InventoryLedger{}

	err := ledger.Release(context.Background(), st, class.ID, 4)
	require.NoError(t, err)

	got, _ := st.TicketClassByID(context.Background(), class.ID)
	assert.Equal(t, 10, got.RemainingQuantity)
}

func TestInventoryLedger_ReleasePastTotalClampsAndReports(t *testing.T) {
	st := newFakeStore()
	class := st.addClass(models.TicketClass{TotalQuantity: 10, RemainingQuantity: 9})
	ledger := InventoryLedger{}

	err := ledger.Release(context.Background(), st, class.ID, 4)
	assert.ErrorIs(t, err, status.ErrLedgerCorruption)

	got, _ := st.TicketClassByID(context.Background(), class.ID)
	assert.Equal(t, 10, got.RemainingQuantity, "counter is clamped at total, never above")
}
