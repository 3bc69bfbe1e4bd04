package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ingressos/internal/model"
)

// ErrCouponUnavailable is returned when a coupon cannot be applied now.
var ErrCouponUnavailable = errors.New("coupon unavailable")

var hundred = decimal.NewFromInt(100)

// CheckCoupon verifies the coupon's window and usage cap at now.
func CheckCoupon(c model.Coupon, now time.Time) error {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return fmt.Errorf("%w: %s not yet valid", ErrCouponUnavailable, c.Code)
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return fmt.Errorf("%w: %s expired", ErrCouponUnavailable, c.Code)
	}
	if c.UsageLimit > 0 && c.Uses >= c.UsageLimit {
		return fmt.Errorf("%w: %s usage limit reached", ErrCouponUnavailable, c.Code)
	}
	return nil
}

// Discount returns the amount the coupon takes off subtotal.  It never
// exceeds the subtotal.
func Discount(c model.Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if err := CheckCoupon(c, now); err != nil {
		return decimal.Zero, err
	}
	var d decimal.Decimal
	switch c.DiscountType {
	case model.DiscountPercent:
		d = subtotal.Mul(c.DiscountValue).Div(hundred).Round(2)
	case model.DiscountFixed:
		d = c.DiscountValue
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown discount type %q", ErrCouponUnavailable, c.DiscountType)
	}
	if d.IsNegative() {
		return decimal.Zero, nil
	}
	if d.GreaterThan(subtotal) {
		return subtotal, nil
	}
	return d, nil
}

// Fee is the buyer fee on base at percent, rounded to cents.
func Fee(base, percent decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() || !percent.IsPositive() {
		return decimal.Zero
	}
	return base.Mul(percent).Div(hundred).Round(2)
}
