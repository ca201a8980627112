package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fory-finance/p2p-desk/pkg/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute_BuyWithBaseFiat(t *testing.T) {
	// 10 units at 1.05, 1.0% fee, base fiat (fx=1)
	q := Compute(model.OperationBuy, d("10"), d("1.05"), d("1.0"), d("1"))

	assert.True(t, q.TotalAmount.Equal(d("10.605")),
		"expected 10.605, got %s", q.TotalAmount)
	assert.True(t, q.FeeAmount.Equal(d("0.105")),
		"expected 0.105, got %s", q.FeeAmount)
}

func TestCompute_SellWithPeggedFiat(t *testing.T) {
	// 5 units at 0.98, 2.0% fee, pegged fiat at 49.0
	q := Compute(model.OperationSell, d("5"), d("0.98"), d("2.0"), d("49.0"))

	assert.True(t, q.TotalAmount.Equal(d("235.298")),
		"expected 235.298, got %s", q.TotalAmount)
	assert.True(t, q.FeeAmount.Equal(d("4.802")),
		"expected 4.802, got %s", q.FeeAmount)
}

func TestCompute_BuyExceedsGross_SellBelowGross(t *testing.T) {
	qty, rate, fee := d("3.5"), d("42000"), d("0.75")
	gross := qty.Mul(rate)

	buy := Compute(model.OperationBuy, qty, rate, fee, d("1"))
	sell := Compute(model.OperationSell, qty, rate, fee, d("1"))

	assert.True(t, buy.TotalAmount.GreaterThan(gross),
		"buyer pays more than gross when fee > 0")
	assert.True(t, sell.TotalAmount.LessThan(gross),
		"seller receives less than gross when fee > 0")
	assert.True(t, buy.FeeAmount.Equal(sell.FeeAmount),
		"same fee magnitude in both directions")
}

func TestCompute_ZeroFee(t *testing.T) {
	q := Compute(model.OperationBuy, d("2"), d("1.5"), d("0"), d("1"))

	assert.True(t, q.TotalAmount.Equal(d("3")))
	assert.True(t, q.FeeAmount.IsZero())
}

func TestCompute_FXScalesBothAmounts(t *testing.T) {
	base := Compute(model.OperationBuy, d("10"), d("1.05"), d("1.0"), d("1"))
	pegged := Compute(model.OperationBuy, d("10"), d("1.05"), d("1.0"), d("49.0"))

	assert.True(t, pegged.TotalAmount.Equal(base.TotalAmount.Mul(d("49.0"))))
	assert.True(t, pegged.FeeAmount.Equal(base.FeeAmount.Mul(d("49.0"))))
}

func TestCompute_FeeAmountMatchesAdjustedMinusGross(t *testing.T) {
	cases := []struct {
		op   model.Operation
		qty  string
		rate string
		fee  string
		fx   string
	}{
		{model.OperationBuy, "1", "1", "0", "1"},
		{model.OperationBuy, "10", "1.05", "1.0", "1"},
		{model.OperationSell, "5", "0.98", "2.0", "49.0"},
		{model.OperationSell, "0.25", "64123.5", "1.25", "47.0"},
		{model.OperationBuy, "1000", "0.0001", "99.9", "1"},
	}

	for _, tc := range cases {
		q := Compute(tc.op, d(tc.qty), d(tc.rate), d(tc.fee), d(tc.fx))

		gross := d(tc.qty).Mul(d(tc.rate))
		feeBase := gross.Mul(d(tc.fee)).Div(d("100"))
		expectedFee := feeBase.Mul(d(tc.fx))

		require.True(t, q.FeeAmount.Equal(expectedFee),
			"%s qty=%s rate=%s fee=%s: expected fee %s, got %s",
			tc.op, tc.qty, tc.rate, tc.fee, expectedFee, q.FeeAmount)
		require.False(t, q.FeeAmount.IsNegative())
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a := Compute(model.OperationSell, d("7.77"), d("1.0123"), d("1.5"), d("47.0"))
	b := Compute(model.OperationSell, d("7.77"), d("1.0123"), d("1.5"), d("47.0"))

	assert.True(t, a.TotalAmount.Equal(b.TotalAmount))
	assert.True(t, a.FeeAmount.Equal(b.FeeAmount))
}
