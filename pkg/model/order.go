package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Operation is the direction of an intake order from the user's perspective.
type Operation string

const (
	OperationBuy  Operation = "BUY"
	OperationSell Operation = "SELL"
)

// SettlementKind identifies how the final amount is denominated.
type SettlementKind string

const (
	// SettlementBase settles in the base fiat (1:1 with the unit of account).
	SettlementBase SettlementKind = "BASE"
	// SettlementPegged settles in the pegged local fiat at the fixed desk rate.
	SettlementPegged SettlementKind = "PEGGED"
)

// OrderSummary is the finalized order handed to the operator and emitted as
// an event once the user confirms.
type OrderSummary struct {
	UserID      int64           `json:"user_id"`
	UserName    string          `json:"user_name"`
	Operation   Operation       `json:"operation"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	MarketRate  decimal.Decimal `json:"market_rate"`
	FeePct      decimal.Decimal `json:"fee_pct"`
	Settlement  SettlementKind  `json:"settlement"`
	Currency    string          `json:"currency"` // fiat code the user pays/receives in
	FXRate      decimal.Decimal `json:"fx_rate"`  // 1 for base fiat
	TotalAmount decimal.Decimal `json:"total_amount"`
	FeeAmount   decimal.Decimal `json:"fee_amount"`
	Address     string          `json:"address,omitempty"` // asset settlement address for the operator
	SubmittedAt time.Time       `json:"submitted_at"`
	Instruction string          `json:"instruction,omitempty"`
}

// Pegged reports whether the order settles in the pegged fiat.
func (o OrderSummary) Pegged() bool {
	return o.Settlement == SettlementPegged
}
