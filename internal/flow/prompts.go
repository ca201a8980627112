package flow

import (
	"fmt"
	"strings"

	"github.com/fory-finance/p2p-desk/internal/session"
	"github.com/fory-finance/p2p-desk/pkg/model"
)

// Button labels. Matching is case-insensitive and keyed on the embedded
// keyword, so free-typed "buy" works as well as the keyboard button.
const (
	labelBuy     = "Buy 🛒"
	labelSell    = "Sell 💸"
	labelConfirm = "✅ Submit order"
	labelCancel  = "❌ Cancel"
)

func operationKeyboard() [][]string {
	return [][]string{{labelBuy, labelSell}}
}

func confirmKeyboard() [][]string {
	return [][]string{{labelConfirm, labelCancel}}
}

// assetKeyboard lays out one symbol per row, mirroring the snapshot order.
func assetKeyboard(snapshot model.Snapshot) [][]string {
	symbols := snapshot.Symbols()
	rows := make([][]string, 0, len(symbols))
	for _, sym := range symbols {
		rows = append(rows, []string{sym})
	}
	return rows
}

func (e *Engine) settlementKeyboard() [][]string {
	return [][]string{{
		fmt.Sprintf("%s (base)", e.cfg.BaseFiat),
		fmt.Sprintf("%s (local)", e.cfg.PeggedFiat),
	}}
}

func (e *Engine) welcomeText(userName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👋 Welcome %s to the P2P exchange desk! 🤝\n\n", userName)
	fmt.Fprintf(&b, "Our fixed %s rates for %s:\n", e.cfg.PeggedFiat, e.cfg.BaseFiat)
	fmt.Fprintf(&b, "You pay (buy): %s %s\n", e.cfg.FiatBuyRate.StringFixed(2), e.cfg.PeggedFiat)
	fmt.Fprintf(&b, "You receive (sell): %s %s\n\n", e.cfg.FiatSellRate.StringFixed(2), e.cfg.PeggedFiat)
	b.WriteString("Choose an operation to continue:")
	return b.String()
}

func (e *Engine) groupRedirectText(userName string) string {
	if e.cfg.BotUsername == "" {
		return fmt.Sprintf("👋 Hi %s! Orders are taken in private chat only. "+
			"Please open a direct conversation with me and send /start.", userName)
	}
	return fmt.Sprintf("👋 Hi %s! For privacy, orders are taken in private chat only.\n"+
		"👈 @%s\n\nSend /start there to begin.", userName, e.cfg.BotUsername)
}

func assetChosenText(sess *session.Session) string {
	return fmt.Sprintf("✅ Selected: %s.\nCurrent %s rate: %s | fee: %s%%\n\n"+
		"Enter the quantity you want (numbers only):",
		sess.Symbol,
		strings.ToLower(string(sess.Operation)),
		sess.MarketRate.StringFixed(4),
		sess.FeePct.StringFixed(2))
}

func (e *Engine) summaryText(sess *session.Session) string {
	action := "you pay"
	if sess.Operation == model.OperationSell {
		action = "you receive"
	}

	var b strings.Builder
	b.WriteString("💰 Order summary — awaiting confirmation 💰\n\n")
	fmt.Fprintf(&b, "Operation: %s\n", sess.Operation)
	fmt.Fprintf(&b, "Asset: %s\n", sess.Symbol)
	fmt.Fprintf(&b, "Quantity: %s %s\n", sess.Quantity.StringFixed(4), sess.Symbol)
	fmt.Fprintf(&b, "Rate: %s | fee: %s%%\n", sess.MarketRate.StringFixed(4), sess.FeePct.StringFixed(2))
	if sess.Settlement == model.SettlementPegged {
		fmt.Fprintf(&b, "Fixed FX rate: 1 %s = %s %s\n", e.cfg.BaseFiat, sess.FXRate.String(), e.cfg.PeggedFiat)
	}
	fmt.Fprintf(&b, "Fee: %s %s\n", sess.FeeAmount.StringFixed(4), sess.Currency)
	fmt.Fprintf(&b, "Total %s: %s %s\n\n", action, sess.TotalAmount.StringFixed(4), sess.Currency)
	b.WriteString("Press \"" + labelConfirm + "\" to send the order to the desk, or \"" + labelCancel + "\".")
	return b.String()
}

func operatorInstruction() string {
	return "Contact the user to share payment details / the settlement address and complete the order."
}
