package status

import "errors"

var (
	// Inventory ledger.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrLedgerCorruption  = errors.New("inventory: release exceeds total quantity")

	// Purchase state machine.
	ErrEventNotFound       = errors.New("purchase: event not found")
	ErrEventNotPurchasable = errors.New("purchase: event is not available for ticket purchase")
	ErrTicketClassNotFound = errors.New("purchase: ticket class not found")
	ErrTicketMismatch      = errors.New("purchase: ticket class does not belong to event")
	ErrInvalidQuantity     = errors.New("purchase: quantity must be at least 1")
	ErrMissingBuyerInfo    = errors.New("purchase: buyer name, email and phone are required")
	ErrPurchaseNotFound    = errors.New("purchase: purchase not found")
	ErrPurchaseNotPending  = errors.New("purchase: purchase is not pending")
	ErrAlreadyPaid         = errors.New("purchase: cannot cancel a paid purchase, request a refund instead")
	ErrNotPaid             = errors.New("purchase: purchase has not been paid")

	// Payment reconciliation.
	ErrPaymentNotFound      = errors.New("payment: payment not found")
	ErrPaymentAlreadyExists = errors.New("payment: a finalized payment already exists for this purchase")
	ErrAlreadyFinalized     = errors.New("payment: payment is already finalized")
	ErrAmountMismatch       = errors.New("payment: observed amount does not match the charged amount")
	ErrPaymentNotCompleted  = errors.New("payment: payment is not completed")

	// Settlement calculator.
	ErrInvalidCommissionRate = errors.New("settlement: commission rate must be in [0, 1)")
	ErrInvalidAmount         = errors.New("settlement: amount must not be negative")

	// Event lifecycle sweeper.
	ErrSweepInProgress = errors.New("sweeper: a sweep is already running")
)
