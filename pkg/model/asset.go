package model

import "github.com/shopspring/decimal"

// AssetConfig is one row of the desk's pricing table: the per-asset fee
// percentages and the settlement address, maintained by operators.
type AssetConfig struct {
	Symbol     string          `json:"symbol"`
	FeeBuyPct  decimal.Decimal `json:"fee_buy_pct"`
	FeeSellPct decimal.Decimal `json:"fee_sell_pct"`
	Address    string          `json:"address"`
}
