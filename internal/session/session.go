package session

import (
	"github.com/shopspring/decimal"

	"github.com/fory-finance/p2p-desk/pkg/model"
)

// State is the conversation step a session is waiting on. The flow is linear;
// invalid input re-prompts without leaving the current state.
type State int

const (
	// StateChooseOperation waits for a buy/sell selection.
	StateChooseOperation State = iota
	// StateChooseAsset waits for an asset symbol from the frozen snapshot.
	StateChooseAsset
	// StateEnterQuantity waits for a positive decimal quantity.
	StateEnterQuantity
	// StateChooseSettlement waits for the settlement currency selection.
	StateChooseSettlement
	// StateConfirm waits for the final confirm/cancel choice.
	StateConfirm
)

func (s State) String() string {
	switch s {
	case StateChooseOperation:
		return "choose_operation"
	case StateChooseAsset:
		return "choose_asset"
	case StateEnterQuantity:
		return "enter_quantity"
	case StateChooseSettlement:
		return "choose_settlement"
	case StateConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// Session accumulates one user's in-progress order across conversation steps.
// Fields fill monotonically: a step's fields are set before the next state is
// entered, and nothing is re-fetched mid-flow — Snapshot is frozen at the
// operation→asset transition so the user sees consistent rates throughout.
type Session struct {
	UserID   int64
	UserName string
	State    State

	Operation  model.Operation
	Snapshot   model.Snapshot
	Symbol     string
	MarketRate decimal.Decimal
	FeePct     decimal.Decimal
	Quantity   decimal.Decimal

	Settlement  model.SettlementKind
	Currency    string
	FXRate      decimal.Decimal
	TotalAmount decimal.Decimal
	FeeAmount   decimal.Decimal
}

// Entry returns the frozen quote entry for the selected symbol.
func (s *Session) Entry() (model.QuoteEntry, bool) {
	entry, ok := s.Snapshot[s.Symbol]
	return entry, ok
}

// Ready reports whether every field required to enter state is populated.
// The engine checks it before each transition so no step's validation runs
// against an earlier step's missing data.
func (s *Session) Ready(state State) bool {
	switch state {
	case StateChooseOperation:
		return true
	case StateChooseAsset:
		return s.Operation != "" && len(s.Snapshot) > 0
	case StateEnterQuantity:
		return s.Ready(StateChooseAsset) && s.Symbol != "" && s.MarketRate.IsPositive()
	case StateChooseSettlement:
		return s.Ready(StateEnterQuantity) && s.Quantity.IsPositive()
	case StateConfirm:
		return s.Ready(StateChooseSettlement) && s.Currency != "" && s.FXRate.IsPositive()
	default:
		return false
	}
}

// Summary builds the finalized order summary from the accumulated fields.
func (s *Session) Summary() model.OrderSummary {
	entry, _ := s.Entry()
	return model.OrderSummary{
		UserID:      s.UserID,
		UserName:    s.UserName,
		Operation:   s.Operation,
		Symbol:      s.Symbol,
		Quantity:    s.Quantity,
		MarketRate:  s.MarketRate,
		FeePct:      s.FeePct,
		Settlement:  s.Settlement,
		Currency:    s.Currency,
		FXRate:      s.FXRate,
		TotalAmount: s.TotalAmount,
		FeeAmount:   s.FeeAmount,
		Address:     entry.SettlementAddress,
	}
}
