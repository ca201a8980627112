package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fory-finance/p2p-desk/pkg/model"
)

// MessageSender is the transport slice the notifier needs: deliver plain text
// to a chat. Satisfied by the Telegram client.
type MessageSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// OperatorNotifier delivers finalized order summaries to the operator chat
// for manual fulfillment.
type OperatorNotifier struct {
	logger         *zap.Logger
	sender         MessageSender
	operatorChatID int64
	baseFiat       string
	peggedFiat     string
}

// NewOperatorNotifier constructs the operator notification sink.
func NewOperatorNotifier(logger *zap.Logger, sender MessageSender, operatorChatID int64, baseFiat, peggedFiat string) *OperatorNotifier {
	return &OperatorNotifier{
		logger:         logger,
		sender:         sender,
		operatorChatID: operatorChatID,
		baseFiat:       baseFiat,
		peggedFiat:     peggedFiat,
	}
}

// NotifyOperator sends the structured order summary to the operator chat.
// Delivery failure is returned to the caller; the flow treats it as fatal to
// the order (no retry queue in this service, see DESIGN.md).
func (n *OperatorNotifier) NotifyOperator(ctx context.Context, order model.OrderSummary) error {
	if n.operatorChatID == 0 {
		return fmt.Errorf("operator chat not configured")
	}

	if err := n.sender.SendText(ctx, n.operatorChatID, n.format(order)); err != nil {
		return fmt.Errorf("operator notify: %w", err)
	}

	n.logger.Info("notify.operator_notified",
		zap.Int64("user_id", order.UserID),
		zap.String("symbol", order.Symbol),
		zap.String("total", order.TotalAmount.String()),
		zap.String("currency", order.Currency))
	return nil
}

func (n *OperatorNotifier) format(order model.OrderSummary) string {
	action := "pays"
	if order.Operation == model.OperationSell {
		action = "receives"
	}

	var b strings.Builder
	b.WriteString("🔔 New P2P order — completed in private chat 🔔\n\n")
	fmt.Fprintf(&b, "From: %s\n", order.UserName)
	fmt.Fprintf(&b, "User ID: %d\n", order.UserID)
	b.WriteString("--- Order details ---\n")
	fmt.Fprintf(&b, "Operation: %s\n", order.Operation)
	fmt.Fprintf(&b, "Asset: %s\n", order.Symbol)
	fmt.Fprintf(&b, "Settlement currency: %s\n", order.Currency)
	if order.Pegged() {
		fmt.Fprintf(&b, "Fixed FX rate: 1 %s = %s %s\n", n.baseFiat, order.FXRate.String(), n.peggedFiat)
	}
	fmt.Fprintf(&b, "Quantity: %s %s\n", order.Quantity.StringFixed(4), order.Symbol)
	fmt.Fprintf(&b, "Rate: %s | fee: %s%% (%s %s)\n",
		order.MarketRate.StringFixed(4), order.FeePct.StringFixed(2),
		order.FeeAmount.StringFixed(4), order.Currency)
	fmt.Fprintf(&b, "Total the user %s: %s %s\n", action, order.TotalAmount.StringFixed(4), order.Currency)
	if order.Address != "" {
		fmt.Fprintf(&b, "Settlement address: %s\n", order.Address)
	}
	if order.Instruction != "" {
		fmt.Fprintf(&b, "Action: %s\n", order.Instruction)
	}
	return b.String()
}
