package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestQuote(t *testing.T) {
	calc := Default()

	tests := []struct {
		name     string
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		{"over free shipping threshold", "1299.00", "103.92", "0.00", "1402.92"},
		{"under free shipping threshold", "100.00", "8.00", "25.00", "133.00"},
		{"exactly at threshold", "500.00", "40.00", "0.00", "540.00"},
		{"just under threshold", "499.99", "40.00", "25.00", "564.99"},
		{"zero subtotal", "0.00", "0.00", "25.00", "25.00"},
		{"rounds half up", "10.31", "0.82", "25.00", "36.13"}, // 0.8248 -> 0.82
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := calc.Quote(dec(tt.subtotal), decimal.Zero)
			require.True(t, q.Tax.Equal(dec(tt.tax)), "tax: got %s want %s", q.Tax, tt.tax)
			require.True(t, q.Shipping.Equal(dec(tt.shipping)), "shipping: got %s want %s", q.Shipping, tt.shipping)
			require.True(t, q.Total.Equal(dec(tt.total)), "total: got %s want %s", q.Total, tt.total)
		})
	}
}

func TestQuoteReconciles(t *testing.T) {
	calc := Default()

	for _, subtotal := range []string{"0.01", "13.37", "250.00", "499.99", "500.00", "1299.00", "99999.99"} {
		q := calc.Quote(dec(subtotal), decimal.Zero)
		sum := q.Subtotal.Add(q.Tax).Add(q.Shipping).Sub(q.Discount)
		require.True(t, q.Total.Equal(sum), "subtotal %s: total %s != %s", subtotal, q.Total, sum)
		require.Equal(t, int32(-2), q.Total.Exponent())
	}
}

func TestQuoteDiscount(t *testing.T) {
	q := Default().Quote(dec("100.00"), dec("10.00"))
	require.True(t, q.Total.Equal(dec("123.00")))
}

func TestTaxRoundsHalfUp(t *testing.T) {
	calc := Default()
	// 10.3125 * 0.08 = 0.825, the half cent rounds up
	require.Equal(t, "0.83", calc.Tax(dec("10.3125")).StringFixed(2))
}
