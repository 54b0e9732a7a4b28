package services

import (
	"testing"

	"ticket-marketplace/internal/status"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSplitAmount_BasicSplit(t *testing.T) {
	platform, organizer, err := SplitAmount(dec("1000.00"), dec("0.10"))
	require.NoError(t, err)

	assert.Equal(t, "100.00", platform.StringFixed(2))
	assert.Equal(t, "900.00", organizer.StringFixed(2))
}

func TestSplitAmount_RoundsHalfUp(t *testing.T) {
	// 33.335 rounds up, and the organizer share absorbs the difference.
	platform, organizer, err := SplitAmount(dec("333.35"), dec("0.10"))
	require.NoError(t, err)

	assert.Equal(t, "33.34", platform.StringFixed(2))
	assert.Equal(t, "300.01", organizer.StringFixed(2))
}

func TestSplitAmount_SharesAlwaysReconcile(t *testing.T) {
	amounts := []string{"0.01", "0.99", "10.00", "123.45", "9999.99"}
	rates := []string{"0", "0.05", "0.125", "0.333", "0.999"}

	for _, a := range amounts {
		for _, r := range rates {
			platform, organizer, err := SplitAmount(dec(a), dec(r))
			require.NoError(t, err)

			sum := platform.Add(organizer)
			assert.True(t, sum.Equal(dec(a)), "amount %s rate %s: %s + %s != %s", a, r, platform, organizer, a)
			assert.False(t, platform.IsNegative())
			assert.False(t, organizer.IsNegative())
		}
	}
}

func TestSplitAmount_ZeroAmount(t *testing.T) {
	platform, organizer, err := SplitAmount(decimal.Zero, dec("0.10"))
	require.NoError(t, err)

	assert.True(t, platform.IsZero())
	assert.True(t, organizer.IsZero())
}

func TestSplitAmount_InvalidRate(t *testing.T) {
	_, _, err := SplitAmount(dec("100.00"), dec("1"))
	assert.ErrorIs(t, err, status.ErrInvalidCommissionRate)

	_, _, err = SplitAmount(dec("100.00"), dec("-0.01"))
	assert.ErrorIs(t, err, status.ErrInvalidCommissionRate)
}

func TestSplitAmount_NegativeAmount(t *testing.T) {
	_, _, err := SplitAmount(dec("-1.00"), dec("0.10"))
	assert.ErrorIs(t, err, status.ErrInvalidAmount)
}
