package inventory

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/ingressos/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDiscount(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		coupon  model.Coupon
		want    string
		wantErr bool
	}{
		{"percent", model.Coupon{DiscountType: model.DiscountPercent, DiscountValue: dec("15")}, "30", false},
		{"fixed", model.Coupon{DiscountType: model.DiscountFixed, DiscountValue: dec("25.50")}, "25.5", false},
		{"fixed above subtotal", model.Coupon{DiscountType: model.DiscountFixed, DiscountValue: dec("500")}, "200", false},
		{"expired", model.Coupon{DiscountType: model.DiscountFixed, DiscountValue: dec("1"), ValidUntil: &past}, "0", true},
		{"not started", model.Coupon{DiscountType: model.DiscountFixed, DiscountValue: dec("1"), ValidFrom: &future}, "0", true},
		{"exhausted", model.Coupon{DiscountType: model.DiscountFixed, DiscountValue: dec("1"), UsageLimit: 2, Uses: 2}, "0", true},
		{"unknown type", model.Coupon{DiscountType: "BRINDE"}, "0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Discount(tt.coupon, dec("200"), now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCouponUnavailable)
				return
			}
			assert.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestFee(t *testing.T) {
	assert.True(t, Fee(dec("100"), dec("10")).Equal(dec("10")))
	assert.True(t, Fee(dec("33.33"), dec("7.5")).Equal(dec("2.5")))
	assert.True(t, Fee(dec("0"), dec("10")).IsZero())
	assert.True(t, Fee(dec("50"), dec("0")).IsZero())
}

func TestRedemptionCode_Distinct(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		c := RedemptionCode(12, 34, at)
		assert.True(t, strings.HasPrefix(c, "12-34-"))
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
	assert.True(t, strings.HasPrefix(CourtesyCode(5, 6, at), "CT5-6-"))
}

func TestQRURL(t *testing.T) {
	got := QRURL("https://qr.example/?data=", "1-2-AB C")
	u, err := url.Parse(got)
	assert.NoError(t, err)
	assert.Equal(t, "1-2-AB C", u.Query().Get("data"))
}
