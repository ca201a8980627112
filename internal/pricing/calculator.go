package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/fory-finance/p2p-desk/pkg/model"
)

var hundred = decimal.NewFromInt(100)

// Quote is the result of one pricing computation: the final settlement amount
// and the fee portion, both in the user's chosen fiat.
type Quote struct {
	TotalAmount decimal.Decimal
	FeeAmount   decimal.Decimal
}

// Compute prices an order. All values are exact decimal arithmetic:
//
//	gross = quantity * marketRate              (unit-of-account currency)
//	buy:  adjusted = gross * (1 + feePct/100)  (user pays the fee on top)
//	sell: adjusted = gross * (1 - feePct/100)  (fee comes out of the payout)
//	fee  = |adjusted - gross|
//	totals scaled by fxRate into the settlement fiat (fxRate = 1 for base fiat)
//
// Callers must reject non-positive quantity before calling; fee percentages
// are validated to [0,100) when the quote snapshot is assembled.
func Compute(op model.Operation, quantity, marketRate, feePct, fxRate decimal.Decimal) Quote {
	gross := quantity.Mul(marketRate)
	feeFraction := feePct.Div(hundred)

	var adjusted decimal.Decimal
	if op == model.OperationBuy {
		adjusted = gross.Mul(decimal.NewFromInt(1).Add(feeFraction))
	} else {
		adjusted = gross.Mul(decimal.NewFromInt(1).Sub(feeFraction))
	}

	fee := adjusted.Sub(gross).Abs()

	return Quote{
		TotalAmount: adjusted.Mul(fxRate),
		FeeAmount:   fee.Mul(fxRate),
	}
}
