package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory store.Store. Mutations take the mutex, so the
// conditional stock decrement is atomic the same way the SQL one is, which
// lets the tests race real goroutines against it.
type fakeStore struct {
	mu         sync.Mutex
	seq        int
	events     map[string]*models.Event
	classes    map[string]*models.TicketClass
	organizers map[string]*models.Organizer
	purchases  map[string]*models.Purchase
	payments   map[string]*models.Payment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:     map[string]*models.Event{},
		classes:    map[string]*models.TicketClass{},
		organizers: map[string]*models.Organizer{},
		purchases:  map[string]*models.Purchase{},
		payments:   map[string]*models.Payment{},
	}
}

func (f *fakeStore) nextID() string {
	f.seq++
	return fmt.Sprintf("rec%04d", f.seq)
}

func (f *fakeStore) addEvent(e models.Event) *models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == "" {
		e.ID = f.nextID()
	}
	f.events[e.ID] = &e
	return &e
}

func (f *fakeStore) addClass(c models.TicketClass) *models.TicketClass {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = f.nextID()
	}
	f.classes[c.ID] = &c
	return &c
}

func (f *fakeStore) addOrganizer(o models.Organizer) *models.Organizer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == "" {
		o.ID = f.nextID()
	}
	f.organizers[o.ID] = &o
	return &o
}

func (f *fakeStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(f)
}

func (f *fakeStore) EventByID(_ context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, status.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) CompletionCandidates(_ context.Context, maxDate string) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if e.Status == models.EventApproved && e.EventDate <= maxDate {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkEventsCompleted(_ context.Context, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		if e, ok := f.events[id]; ok && e.Status == models.EventApproved {
			e.Status = models.EventCompleted
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) TicketClassByID(_ context.Context, id string) (*models.TicketClass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.classes[id]
	if !ok {
		return nil, status.ErrTicketClassNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) DecrementStock(_ context.Context, classID string, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.classes[classID]
	if !ok || c.RemainingQuantity < qty {
		return false, nil
	}
	c.RemainingQuantity -= qty
	return true, nil
}

func (f *fakeStore) SetRemainingStock(_ context.Context, classID string, remaining int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.classes[classID]
	if !ok {
		return status.ErrTicketClassNotFound
	}
	c.RemainingQuantity = remaining
	return nil
}

func (f *fakeStore) OrganizerByID(_ context.Context, id string) (*models.Organizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.organizers[id]
	if !ok {
		return nil, fmt.Errorf("organizer %q not found", id)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) CreatePurchase(_ context.Context, p *models.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.nextID()
	p.Created = time.Now().UTC()
	cp := *p
	f.purchases[p.ID] = &cp
	return nil
}

func (f *fakeStore) PurchaseByID(_ context.Context, id string) (*models.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[id]
	if !ok {
		return nil, status.ErrPurchaseNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListPurchases(_ context.Context, fl store.PurchaseFilter) ([]models.Purchase, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Purchase
	for _, p := range f.purchases {
		if fl.Status != "" && p.Status != fl.Status {
			continue
		}
		if fl.EventID != "" && p.EventID != fl.EventID {
			continue
		}
		if fl.Email != "" && p.BuyerEmail != fl.Email {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (f *fakeStore) SetPurchaseStatus(_ context.Context, id string, s models.PurchaseStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[id]
	if !ok {
		return status.ErrPurchaseNotFound
	}
	p.Status = s
	return nil
}

func (f *fakeStore) SetPurchaseQRCode(_ context.Context, id, qr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[id]
	if !ok {
		return status.ErrPurchaseNotFound
	}
	p.QRCode = qr
	return nil
}

func (f *fakeStore) DeletePurchase(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.purchases[id]; !ok {
		return status.ErrPurchaseNotFound
	}
	delete(f.purchases, id)
	return nil
}

func (f *fakeStore) CreatePayment(_ context.Context, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.nextID()
	p.Created = time.Now().UTC()
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakeStore) PaymentByID(_ context.Context, id string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, status.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) PaymentByPurchase(_ context.Context, purchaseID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.PurchaseID == purchaseID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, status.ErrPaymentNotFound
}

func (f *fakeStore) PaymentByReference(_ context.Context, reference string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.Reference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, status.ErrPaymentNotFound
}

func (f *fakeStore) ListPayments(_ context.Context, fl store.PaymentFilter) ([]models.Payment, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if fl.Status != "" && p.Status != fl.Status {
			continue
		}
		if fl.Reference != "" && p.Reference != fl.Reference {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (f *fakeStore) SetPaymentTrackingID(_ context.Context, id, trackingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return status.ErrPaymentNotFound
	}
	p.TrackingID = trackingID
	return nil
}

func (f *fakeStore) CompletePayment(_ context.Context, id, trackingID string, platformShare, organizerShare decimal.Decimal, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return status.ErrPaymentNotFound
	}
	p.Status = models.PaymentCompleted
	p.TrackingID = trackingID
	p.PlatformShare = platformShare
	p.OrganizerShare = organizerShare
	p.CompletedAt = &at
	return nil
}

func (f *fakeStore) FailPayment(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return status.ErrPaymentNotFound
	}
	p.Status = models.PaymentFailed
	p.FailureReason = reason
	return nil
}

func (f *fakeStore) DashboardStats(_ context.Context) (*store.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &store.DashboardStats{
		EventsByStatus:    map[models.EventStatus]int{},
		PurchasesByStatus: map[models.PurchaseStatus]int{},
	}
	for _, e := range f.events {
		stats.EventsByStatus[e.Status]++
	}
	for _, p := range f.purchases {
		stats.PurchasesByStatus[p.Status]++
	}
	for _, p := range f.payments {
		if p.Status == models.PaymentCompleted {
			stats.SettledPayments++
			stats.GrossVolume = stats.GrossVolume.Add(p.Amount)
			stats.PlatformRevenue = stats.PlatformRevenue.Add(p.PlatformShare)
			stats.OrganizerRevenue = stats.OrganizerRevenue.Add(p.OrganizerShare)
		}
	}
	return stats, nil
}
