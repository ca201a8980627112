package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// QuoteEntry is the per-asset pricing snapshot used during one intake session:
// live market rates blended with the stored desk fee percentages and the
// settlement address for the asset. Entries are immutable once fetched.
type QuoteEntry struct {
	Symbol            string          `json:"symbol"`
	BuyRate           decimal.Decimal `json:"buy_rate"`  // unit-of-account per asset, user buying
	SellRate          decimal.Decimal `json:"sell_rate"` // unit-of-account per asset, user selling
	FeeBuyPct         decimal.Decimal `json:"fee_buy_pct"`
	FeeSellPct        decimal.Decimal `json:"fee_sell_pct"`
	SettlementAddress string          `json:"settlement_address"`
}

// Rate returns the directional market rate for the given operation.
func (q QuoteEntry) Rate(op Operation) decimal.Decimal {
	if op == OperationBuy {
		return q.BuyRate
	}
	return q.SellRate
}

// FeePct returns the directional fee percentage for the given operation.
func (q QuoteEntry) FeePct(op Operation) decimal.Decimal {
	if op == OperationBuy {
		return q.FeeBuyPct
	}
	return q.FeeSellPct
}

// Snapshot is the frozen set of quote entries captured once per session,
// keyed by upper-case asset symbol. Prices within one session never move.
type Snapshot map[string]QuoteEntry

// Symbols returns the snapshot's asset symbols in sorted order.
func (s Snapshot) Symbols() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
