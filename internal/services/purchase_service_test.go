package services

import (
	"context"
	"sync"
	"testing"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedApprovedEvent(st *fakeStore, remaining int) (*models.Event, *models.TicketClass) {
	org := st.addOrganizer(models.Organizer{
		Name:           "Acme Events",
		Email:          "acme@example.com",
		Status:         models.OrganizerApproved,
		CommissionRate: dec("0.10"),
	})
	event := st.addEvent(models.Event{
		OrganizerID: org.ID,
		Name:        "Summer Fest",
		EventDate:   "2026-12-01",
		Status:      models.EventApproved,
	})
	class := st.addClass(models.TicketClass{
		EventID:           event.ID,
		Name:              "VIP",
		UnitPrice:         dec("250.00"),
		TotalQuantity:     remaining,
		RemainingQuantity: remaining,
	})
	return event, class
}

func buyerInput(event *models.Event, class *models.TicketClass, qty int) CreatePurchaseInput {
	return CreatePurchaseInput{
		EventID:       event.ID,
		TicketClassID: class.ID,
		Quantity:      qty,
		BuyerName:     "Jane Buyer",
		BuyerEmail:    "jane@example.com",
		BuyerPhone:    "+254700000000",
	}
}

func TestPurchaseService_CreateReservesAndFreezesAmount(t *testing.T) {
	st := newFakeStore()
	event, class := seedApprovedEvent(st, 10)
	svc := NewPurchaseService(st)

	purchase, err := svc.Create(context.Background(), buyerInput(event, class, 3))
	require.NoError(t, err)

	assert.Equal(t, models.PurchasePending, purchase.Status)
	assert.Equal(t, "750.00", purchase.GrossAmount.StringFixed(2))

	got, _ := st.TicketClassByID(context.Background(), class.ID)
	assert.Equal(t, 7, got.RemainingQuantity)

	// Changing the price later never affects the frozen amount.
	st.mu.Lock()
	st.classes[class.ID].UnitPrice = dec("999.00")
	st.mu.Unlock()

	reread, err := svc.GetByID(context.Background(), purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, "750.00", reread.GrossAmount.StringFixed(2))
}

func TestPurchaseService_CreateValidatesInput(t *testing.T) {
	st := newFakeStore()
	event, class := seedApprovedEvent(st, 10)
	svc := NewPurchaseService(st)
	ctx := context.Background()

	in := buyerInput(event, class, 1)
	in.BuyerEmail = ""
	_, err := svc.Create(ctx, in)
	assert.ErrorIs(t, err, status.ErrMissingBuyerInfo)

	in = buyerInput(event, class, 0)
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, status.ErrInvalidQuantity)
}

func TestPurchaseService_CreateRejectsNonPurchasableEvent(t *testing.T) {
	st := newFakeStore()
	event, class := seedApprovedEvent(st, 10)
	svc := NewPurchaseService(st)
	ctx := context.Background()

	for _, s := range []models.EventStatus{models.EventPending, models.EventRejected, models.EventCompleted, models.EventCancelled} {
		st.mu.Lock()
		st.events[event.ID].Status = s
		st.mu.Unlock()

		_, err := svc.Create(ctx, buyerInput(event, class, 1))
		assert.ErrorIs(t, err, status.ErrEventNotPurchasable, "status %s", s)
	}

	got, _ := st.TicketClassByID(ctx, class.ID)
	assert.Equal(t, 10, got.RemainingQuantity, "rejected purchases must not touch stock")
}

func TestPurchaseService_CreateRejectsForeignTicketClass(t *testing.T) {
	st := newFakeStore()
	event, _ := seedApprovedEvent(st, 10)
	_, otherClass := seedApprovedEvent(st, 10)
	svc := NewPurchaseService(st)

	_, err := svc.Create(context.Background(), buyerInput(event, otherClass, 1))
	assert.ErrorIs(t, err, status.ErrTicketMismatch)
}

func TestPurchaseService_CreateInsufficientStock(t *testing.T) {
	st := newFakeStore()
	event, class := seedApprovedEvent(st, 2)
	svc := NewPurchaseService(st)

	_, err := svc.Create(context.Background(), buyerInput(event, class, 3))
	assert.ErrorIs(t, err, status.ErrInsufficientStock)
	assert.Empty(t, st.purchases, "no purchase row without a reservation")
}

func TestPurchaseService_ConcurrentCreatesNeverOversell(t *testing.T) {
	st := newFakeStore()
	event, class := seedApprovedEvent(st, 1)
	svc := NewPurchaseService(st)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), buyerInput(event, class, 1))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var okCount, insufficient int
	for err := range results {
		switch {
		case err == nil:
			okCount++
		case err == status.ErrInsufficientStock:
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, insufficient)
}

func TestPurchaseService_CancelReleasesOnce(t *testing.T) {
	st := newFakeStore()
	event, class := seedApprovedEvent(st, 10)
	svc := NewPurchaseService(st)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, buyerInput(event, class, 4))
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, purchase.ID))

	got, _ := st.TicketClassByID(ctx, class.ID)
	assert.Equal(t, 10, got.RemainingQuantity)

	// Second cancel is a no-op, not a second release.
	require.NoError(t, svc.Cancel(ctx, purchase.ID))
	got, _ = st.TicketClassByID(ctx, class.ID)
	assert.Equal(t, 10, got.RemainingQuantity)

	reread, _ := svc.GetByID(ctx, purchase.ID)
	assert.Equal(t, models.PurchaseCancelled, reread.Status)
}

func TestPurchaseService_CancelPaidPurchaseRejected(t *testing.T) {
	st := newFakeStore()
	event, class := seedApprovedEvent(st, 10)
	svc := NewPurchaseService(st)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, buyerInput(event, class, 1))
	require.NoError(t, err)
	require.NoError(t, st.SetPurchaseStatus(ctx, purchase.ID, models.PurchasePaid))

	assert.ErrorIs(t, svc.Cancel(ctx, purchase.ID), status.ErrAlreadyPaid)
}

func TestPurchaseService_QRCodeOnlyForPaid(t *testing.T) {
	st := newFakeStore()
	event, class := seedApprovedEvent(st, 10)
	svc := NewPurchaseService(st)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, buyerInput(event, class, 1))
	require.NoError(t, err)

	_, err = svc.GenerateQRCode(ctx, purchase.ID)
	assert.ErrorIs(t, err, status.ErrNotPaid)

	require.NoError(t, st.SetPurchaseStatus(ctx, purchase.ID, models.PurchasePaid))

	code, err := svc.GenerateQRCode(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Contains(t, code, purchase.ID)
	assert.Contains(t, code, event.ID)
}

func TestPurchaseService_ListFiltersByEmail(t *testing.T) {
	st := newFakeStore()
	event, class := seedApprovedEvent(st, 10)
	svc := NewPurchaseService(st)
	ctx := context.Background()

	_, err := svc.Create(ctx, buyerInput(event, class, 1))
	require.NoError(t, err)

	other := buyerInput(event, class, 1)
	other.BuyerEmail = "someone.else@example.com"
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	items, total, err := svc.List(ctx, store.PurchaseFilter{Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "jane@example.com", items[0].BuyerEmail)
}
