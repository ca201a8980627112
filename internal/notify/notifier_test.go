package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fory-finance/p2p-desk/pkg/model"
)

type stubSender struct {
	chatID int64
	texts  []string
	err    error
}

func (s *stubSender) SendText(ctx context.Context, chatID int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.chatID = chatID
	s.texts = append(s.texts, text)
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleOrder() model.OrderSummary {
	return model.OrderSummary{
		UserID:      7001,
		UserName:    "Omar",
		Operation:   model.OperationSell,
		Symbol:      "TON",
		Quantity:    d("5"),
		MarketRate:  d("0.98"),
		FeePct:      d("2"),
		Settlement:  model.SettlementPegged,
		Currency:    "EGP",
		FXRate:      d("47.0"),
		TotalAmount: d("225.694"),
		FeeAmount:   d("4.606"),
		Address:     "UQtonaddr",
		SubmittedAt: time.Now().UTC(),
		Instruction: "Contact the user to complete the order.",
	}
}

func TestNotifyOperator(t *testing.T) {
	sender := &stubSender{}
	n := NewOperatorNotifier(zap.NewNop(), sender, 555, "USD", "EGP")

	require.NoError(t, n.NotifyOperator(context.Background(), sampleOrder()))
	require.Len(t, sender.texts, 1)
	assert.Equal(t, int64(555), sender.chatID)

	text := sender.texts[0]
	assert.Contains(t, text, "From: Omar")
	assert.Contains(t, text, "User ID: 7001")
	assert.Contains(t, text, "Operation: SELL")
	assert.Contains(t, text, "Settlement currency: EGP")
	assert.Contains(t, text, "Fixed FX rate: 1 USD = 47.0 EGP")
	assert.Contains(t, text, "Quantity: 5.0000 TON")
	assert.Contains(t, text, "Total the user receives: 225.6940 EGP")
	assert.Contains(t, text, "Settlement address: UQtonaddr")
	assert.Contains(t, text, "Contact the user")
}

func TestNotifyOperatorBaseFiatOmitsFX(t *testing.T) {
	sender := &stubSender{}
	n := NewOperatorNotifier(zap.NewNop(), sender, 555, "USD", "EGP")

	order := sampleOrder()
	order.Operation = model.OperationBuy
	order.Settlement = model.SettlementBase
	order.Currency = "USD"
	order.FXRate = d("1")
	order.Address = ""

	require.NoError(t, n.NotifyOperator(context.Background(), order))
	text := sender.texts[0]
	assert.NotContains(t, text, "Fixed FX rate")
	assert.NotContains(t, text, "Settlement address")
	assert.Contains(t, text, "Total the user pays")
}

func TestNotifyOperatorUnconfigured(t *testing.T) {
	sender := &stubSender{}
	n := NewOperatorNotifier(zap.NewNop(), sender, 0, "USD", "EGP")

	err := n.NotifyOperator(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
	assert.Empty(t, sender.texts)
}

func TestNotifyOperatorDeliveryFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("telegram 502")}
	n := NewOperatorNotifier(zap.NewNop(), sender, 555, "USD", "EGP")

	err := n.NotifyOperator(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operator notify")
}
