package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// PB is the PocketBase-backed Store. Transactions map onto
// core.App.RunInTransaction, which serializes writers on the underlying
// SQLite pool; that serialization is what makes the conditional stock
// decrement safe against lost updates.
type PB struct {
	app core.App
}

func NewPB(app core.App) *PB {
	return &PB{app: app}
}

func (s *PB) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(&PB{app: txApp})
	})
}

// Events

func (s *PB) EventByID(ctx context.Context, id string) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrEventNotFound
		}
		return nil, fmt.Errorf("find event %s: %w", id, err)
	}
	return eventFromRecord(record), nil
}

func (s *PB) CompletionCandidates(ctx context.Context, maxDate string) ([]models.Event, error) {
	records, err := s.app.FindRecordsByFilter(
		"events",
		"status = {:status} && event_date <= {:maxDate}",
		"event_date",
		-1,
		0,
		dbx.Params{"status": string(models.EventApproved), "maxDate": maxDate},
	)
	if err != nil {
		return nil, fmt.Errorf("find completion candidates: %w", err)
	}

	events := make([]models.Event, len(records))
	for i, record := range records {
		events[i] = *eventFromRecord(record)
	}
	return events, nil
}

func (s *PB) MarkEventsCompleted(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	// The status guard makes concurrent sweeps idempotent: rows already
	// completed simply match zero times.
	res, err := s.app.DB().Update(
		"events",
		dbx.Params{"status": string(models.EventCompleted)},
		dbx.And(
			dbx.HashExp{"status": string(models.EventApproved)},
			dbx.In("id", args...),
		),
	).Execute()
	if err != nil {
		return 0, fmt.Errorf("mark events completed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Ticket classes

func (s *PB) TicketClassByID(ctx context.Context, id string) (*models.TicketClass, error) {
	record, err := s.app.FindRecordById("ticket_classes", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrTicketClassNotFound
		}
		return nil, fmt.Errorf("find ticket class %s: %w", id, err)
	}
	return ticketClassFromRecord(record), nil
}

func (s *PB) DecrementStock(ctx context.Context, classID string, qty int) (bool, error) {
	// Check and decrement in one statement; the remaining_quantity guard is
	// the oversell barrier.
	res, err := s.app.DB().NewQuery(
		`UPDATE ticket_classes
		 SET remaining_quantity = remaining_quantity - {:qty}
		 WHERE id = {:id} AND remaining_quantity >= {:qty}`,
	).Bind(dbx.Params{"qty": qty, "id": classID}).Execute()
	if err != nil {
		return false, fmt.Errorf("decrement stock %s: %w", classID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PB) SetRemainingStock(ctx context.Context, classID string, remaining int) error {
	res, err := s.app.DB().Update(
		"ticket_classes",
		dbx.Params{"remaining_quantity": remaining},
		dbx.HashExp{"id": classID},
	).Execute()
	if err != nil {
		return fmt.Errorf("set remaining stock %s: %w", classID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return status.ErrTicketClassNotFound
	}
	return nil
}

// Organizers

func (s *PB) OrganizerByID(ctx context.Context, id string) (*models.Organizer, error) {
	record, err := s.app.FindRecordById("organizers", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("organizer %s not found", id)
		}
		return nil, fmt.Errorf("find organizer %s: %w", id, err)
	}
	return &models.Organizer{
		ID:             record.Id,
		Name:           record.GetString("name"),
		Email:          record.GetString("email"),
		Status:         models.OrganizerStatus(record.GetString("status")),
		CommissionRate: decFromString(record.GetString("commission_rate")),
		MerchantRef:    record.GetString("merchant_ref"),
	}, nil
}

// Purchases

func (s *PB) CreatePurchase(ctx context.Context, p *models.Purchase) error {
	collection, err := s.app.FindCollectionByNameOrId("purchases")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("event", p.EventID)
	record.Set("ticket_class", p.TicketClassID)
	record.Set("quantity", p.Quantity)
	record.Set("gross_amount", p.GrossAmount.StringFixed(2))
	record.Set("buyer_name", p.BuyerName)
	record.Set("buyer_email", p.BuyerEmail)
	record.Set("buyer_phone", p.BuyerPhone)
	record.Set("status", string(p.Status))

	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("create purchase: %w", err)
	}

	p.ID = record.Id
	p.Created = record.GetDateTime("created").Time()
	return nil
}

func (s *PB) PurchaseByID(ctx context.Context, id string) (*models.Purchase, error) {
	record, err := s.app.FindRecordById("purchases", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("find purchase %s: %w", id, err)
	}
	return purchaseFromRecord(record), nil
}

func (s *PB) ListPurchases(ctx context.Context, f PurchaseFilter) ([]models.Purchase, int, error) {
	var parts []string
	params := dbx.Params{}
	counters := dbx.HashExp{}

	if f.Status != "" {
		parts = append(parts, "status = {:status}")
		params["status"] = string(f.Status)
		counters["status"] = string(f.Status)
	}
	if f.EventID != "" {
		parts = append(parts, "event = {:event}")
		params["event"] = f.EventID
		counters["event"] = f.EventID
	}
	if f.Email != "" {
		parts = append(parts, "buyer_email = {:email}")
		params["email"] = f.Email
		counters["buyer_email"] = f.Email
	}

	filter := strings.Join(parts, " && ")
	if filter == "" {
		filter = "id != ''"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}

	var exprs []dbx.Expression
	if len(counters) > 0 {
		exprs = append(exprs, counters)
	}
	total, err := s.app.CountRecords("purchases", exprs...)
	if err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	records, err := s.app.FindRecordsByFilter(
		"purchases", filter, "-created", limit, (page-1)*limit, params,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}

	purchases := make([]models.Purchase, len(records))
	for i, record := range records {
		purchases[i] = *purchaseFromRecord(record)
	}
	return purchases, int(total), nil
}

func (s *PB) SetPurchaseStatus(ctx context.Context, id string, ps models.PurchaseStatus) error {
	record, err := s.app.FindRecordById("purchases", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrPurchaseNotFound
		}
		return err
	}

	record.Set("status", string(ps))
	return s.app.Save(record)
}

func (s *PB) SetPurchaseQRCode(ctx context.Context, id, qr string) error {
	record, err := s.app.FindRecordById("purchases", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrPurchaseNotFound
		}
		return err
	}

	record.Set("qr_code", qr)
	return s.app.Save(record)
}

func (s *PB) DeletePurchase(ctx context.Context, id string) error {
	record, err := s.app.FindRecordById("purchases", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrPurchaseNotFound
		}
		return err
	}
	return s.app.Delete(record)
}

// Payments

func (s *PB) CreatePayment(ctx context.Context, p *models.Payment) error {
	collection, err := s.app.FindCollectionByNameOrId("payments")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("purchase", p.PurchaseID)
	record.Set("amount", p.Amount.StringFixed(2))
	record.Set("status", string(p.Status))
	record.Set("reference", p.Reference)
	record.Set("tracking_id", p.TrackingID)

	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	p.ID = record.Id
	p.Created = record.GetDateTime("created").Time()
	return nil
}

func (s *PB) PaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	record, err := s.app.FindRecordById("payments", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment %s: %w", id, err)
	}
	return paymentFromRecord(record), nil
}

func (s *PB) PaymentByPurchase(ctx context.Context, purchaseID string) (*models.Payment, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"payments", "purchase = {:purchase}", dbx.Params{"purchase": purchaseID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment for purchase %s: %w", purchaseID, err)
	}
	return paymentFromRecord(record), nil
}

func (s *PB) PaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"payments", "reference = {:reference}", dbx.Params{"reference": reference},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find payment by reference: %w", err)
	}
	return paymentFromRecord(record), nil
}

func (s *PB) ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, int, error) {
	var parts []string
	params := dbx.Params{}
	counters := dbx.HashExp{}

	if f.Status != "" {
		parts = append(parts, "status = {:status}")
		params["status"] = string(f.Status)
		counters["status"] = string(f.Status)
	}
	if f.Reference != "" {
		parts = append(parts, "reference = {:reference}")
		params["reference"] = f.Reference
		counters["reference"] = f.Reference
	}

	filter := strings.Join(parts, " && ")
	if filter == "" {
		filter = "id != ''"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}

	var exprs []dbx.Expression
	if len(counters) > 0 {
		exprs = append(exprs, counters)
	}
	total, err := s.app.CountRecords("payments", exprs...)
	if err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	records, err := s.app.FindRecordsByFilter(
		"payments", filter, "-created", limit, (page-1)*limit, params,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	payments := make([]models.Payment, len(records))
	for i, record := range records {
		payments[i] = *paymentFromRecord(record)
	}
	return payments, int(total), nil
}

func (s *PB) SetPaymentTrackingID(ctx context.Context, id, trackingID string) error {
	record, err := s.app.FindRecordById("payments", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrPaymentNotFound
		}
		return err
	}

	record.Set("tracking_id", trackingID)
	return s.app.Save(record)
}

func (s *PB) CompletePayment(ctx context.Context, id, trackingID string, platformShare, organizerShare decimal.Decimal, at time.Time) error {
	record, err := s.app.FindRecordById("payments", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrPaymentNotFound
		}
		return err
	}

	record.Set("status", string(models.PaymentCompleted))
	record.Set("tracking_id", trackingID)
	record.Set("platform_share", platformShare.StringFixed(2))
	record.Set("organizer_share", organizerShare.StringFixed(2))
	record.Set("completed_at", at)
	return s.app.Save(record)
}

func (s *PB) FailPayment(ctx context.Context, id, reason string) error {
	record, err := s.app.FindRecordById("payments", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return status.ErrPaymentNotFound
		}
		return err
	}

	record.Set("status", string(models.PaymentFailed))
	record.Set("failure_reason", reason)
	return s.app.Save(record)
}

// Analytics

func (s *PB) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		EventsByStatus:    map[models.EventStatus]int{},
		PurchasesByStatus: map[models.PurchaseStatus]int{},
	}

	type statusCount struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}

	var eventCounts []statusCount
	if err := s.app.DB().NewQuery(
		"SELECT status, COUNT(*) AS n FROM events GROUP BY status",
	).All(&eventCounts); err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	for _, row := range eventCounts {
		stats.EventsByStatus[models.EventStatus(row.Status)] = row.N
	}

	var purchaseCounts []statusCount
	if err := s.app.DB().NewQuery(
		"SELECT status, COUNT(*) AS n FROM purchases GROUP BY status",
	).All(&purchaseCounts); err != nil {
		return nil, fmt.Errorf("purchase stats: %w", err)
	}
	for _, row := range purchaseCounts {
		stats.PurchasesByStatus[models.PurchaseStatus(row.Status)] = row.N
	}

	var revenue struct {
		N         int     `db:"n"`
		Gross     float64 `db:"gross"`
		Platform  float64 `db:"platform"`
		Organizer float64 `db:"organizer"`
	}
	if err := s.app.DB().NewQuery(
		`SELECT COUNT(*) AS n,
		        COALESCE(SUM(CAST(amount AS REAL)), 0) AS gross,
		        COALESCE(SUM(CAST(platform_share AS REAL)), 0) AS platform,
		        COALESCE(SUM(CAST(organizer_share AS REAL)), 0) AS organizer
		 FROM payments WHERE status = {:status}`,
	).Bind(dbx.Params{"status": string(models.PaymentCompleted)}).One(&revenue); err != nil {
		return nil, fmt.Errorf("revenue stats: %w", err)
	}

	stats.SettledPayments = revenue.N
	stats.GrossVolume = decimal.NewFromFloat(revenue.Gross).Round(2)
	stats.PlatformRevenue = decimal.NewFromFloat(revenue.Platform).Round(2)
	stats.OrganizerRevenue = decimal.NewFromFloat(revenue.Organizer).Round(2)
	return stats, nil
}

// record mapping

func eventFromRecord(record *core.Record) *models.Event {
	return &models.Event{
		ID:          record.Id,
		OrganizerID: record.GetString("organizer"),
		Name:        record.GetString("event_name"),
		Description: record.GetString("description"),
		Venue:       record.GetString("venue"),
		EventDate:   record.GetString("event_date"),
		StartTime:   record.GetString("start_time"),
		EndTime:     record.GetString("end_time"),
		Status:      models.EventStatus(record.GetString("status")),
	}
}

func ticketClassFromRecord(record *core.Record) *models.TicketClass {
	return &models.TicketClass{
		ID:                record.Id,
		EventID:           record.GetString("event"),
		Name:              record.GetString("name"),
		UnitPrice:         decFromString(record.GetString("unit_price")),
		TotalQuantity:     record.GetInt("total_quantity"),
		RemainingQuantity: record.GetInt("remaining_quantity"),
	}
}

func purchaseFromRecord(record *core.Record) *models.Purchase {
	return &models.Purchase{
		ID:            record.Id,
		EventID:       record.GetString("event"),
		TicketClassID: record.GetString("ticket_class"),
		Quantity:      record.GetInt("quantity"),
		GrossAmount:   decFromString(record.GetString("gross_amount")),
		BuyerName:     record.GetString("buyer_name"),
		BuyerEmail:    record.GetString("buyer_email"),
		BuyerPhone:    record.GetString("buyer_phone"),
		Status:        models.PurchaseStatus(record.GetString("status")),
		QRCode:        record.GetString("qr_code"),
		Created:       record.GetDateTime("created").Time(),
	}
}

func paymentFromRecord(record *core.Record) *models.Payment {
	payment := &models.Payment{
		ID:             record.Id,
		PurchaseID:     record.GetString("purchase"),
		Amount:         decFromString(record.GetString("amount")),
		Status:         models.PaymentStatus(record.GetString("status")),
		Reference:      record.GetString("reference"),
		TrackingID:     record.GetString("tracking_id"),
		PlatformShare:  decFromString(record.GetString("platform_share")),
		OrganizerShare: decFromString(record.GetString("organizer_share")),
		FailureReason:  record.GetString("failure_reason"),
		Created:        record.GetDateTime("created").Time(),
	}

	if completed := record.GetDateTime("completed_at"); !completed.IsZero() {
		t := completed.Time()
		payment.CompletedAt = &t
	}
	return payment
}

// decFromString maps stored money text back to a decimal. An unparseable
// value means the row was written outside the engine; that is corruption, so
// it is logged loudly rather than silently zeroed.
func decFromString(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		slog.Error("corrupt decimal value in store", "value", s, "error", err)
		return decimal.Zero
	}
	return d
}
