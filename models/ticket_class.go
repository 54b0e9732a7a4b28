package models

import (
	"github.com/shopspring/decimal"
)

// TicketClass is a priced category of tickets for an event with finite stock.
// RemainingQuantity is mutated only by the inventory ledger.
type TicketClass struct {
	ID                string          `json:"id"`
	EventID           string          `json:"event_id"`
	Name              string          `json:"name"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalQuantity     int             `json:"total_quantity"`
	RemainingQuantity int             `json:"remaining_quantity"`
}
