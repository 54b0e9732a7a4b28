package services

import (
	"ticket-marketplace/internal/status"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// SplitAmount derives the platform and organizer shares of a gross amount.
// The platform share is amount x rate rounded half-up to the cent; the
// organizer share is the remainder, never computed independently, so
// platformShare + organizerShare == amount holds exactly.
func SplitAmount(amount, commissionRate decimal.Decimal) (platformShare, organizerShare decimal.Decimal, err error) {
	if commissionRate.IsNegative() || commissionRate.GreaterThanOrEqual(one) {
		return decimal.Zero, decimal.Zero, status.ErrInvalidCommissionRate
	}
	if amount.IsNegative() {
		return decimal.Zero, decimal.Zero, status.ErrInvalidAmount
	}

	// decimal.Round rounds half away from zero, which is half-up for the
	// non-negative amounts allowed here.
	platformShare = amount.Mul(commissionRate).Round(2)
	organizerShare = amount.Sub(platformShare)
	return platformShare, organizerShare, nil
}
