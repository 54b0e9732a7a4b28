package handlers

import (
	"errors"

	"ticket-marketplace/internal/status"

	"github.com/pocketbase/pocketbase/apis"
)

// apiError maps internal/status sentinels onto HTTP responses. Anything
// unrecognized becomes a 500 with the original error attached for the logs.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrTicketClassNotFound),
		errors.Is(err, status.ErrPurchaseNotFound),
		errors.Is(err, status.ErrPaymentNotFound):
		return apis.NewNotFoundError(err.Error(), nil)

	case errors.Is(err, status.ErrInsufficientStock),
		errors.Is(err, status.ErrEventNotPurchasable),
		errors.Is(err, status.ErrTicketMismatch),
		errors.Is(err, status.ErrInvalidQuantity),
		errors.Is(err, status.ErrMissingBuyerInfo),
		errors.Is(err, status.ErrPurchaseNotPending),
		errors.Is(err, status.ErrAlreadyPaid),
		errors.Is(err, status.ErrNotPaid),
		errors.Is(err, status.ErrAmountMismatch),
		errors.Is(err, status.ErrPaymentNotCompleted):
		return apis.NewBadRequestError(err.Error(), nil)

	case errors.Is(err, status.ErrPaymentAlreadyExists),
		errors.Is(err, status.ErrAlreadyFinalized),
		errors.Is(err, status.ErrSweepInProgress):
		return apis.NewApiError(409, err.Error(), nil)

	default:
		return apis.NewInternalServerError("internal error", err)
	}
}
