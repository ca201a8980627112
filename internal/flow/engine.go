package flow

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fory-finance/p2p-desk/internal/metrics"
	"github.com/fory-finance/p2p-desk/internal/pricing"
	"github.com/fory-finance/p2p-desk/internal/session"
	"github.com/fory-finance/p2p-desk/pkg/model"
)

// Inbound is one user message as seen by the flow, already stripped of
// transport detail. Command carries the bare command name ("start") when the
// message was a /command, empty otherwise.
type Inbound struct {
	UserID   int64
	ChatID   int64
	UserName string
	Text     string
	Command  string
	Private  bool
}

// Reply is one outbound message: plain text plus an optional reply keyboard.
type Reply struct {
	ChatID         int64
	Text           string
	Choices        [][]string
	RemoveKeyboard bool
}

// QuoteFetcher provides the per-session quote snapshot.
type QuoteFetcher interface {
	FetchSnapshot(ctx context.Context) (model.Snapshot, error)
}

// Notifier delivers a finalized order to the operator destination.
type Notifier interface {
	NotifyOperator(ctx context.Context, order model.OrderSummary) error
}

// EventSink receives order lifecycle events (best effort, never blocks an order).
type EventSink interface {
	OrderSubmitted(ctx context.Context, order model.OrderSummary) error
	OrderCancelled(ctx context.Context, userID int64) error
}

// Auditor records submitted orders for the audit trail (best effort).
type Auditor interface {
	RecordOrder(ctx context.Context, order model.OrderSummary) error
}

// Config is the flow's slice of service configuration.
type Config struct {
	BaseFiat     string
	PeggedFiat   string
	FiatBuyRate  decimal.Decimal // pegged per base when the user buys
	FiatSellRate decimal.Decimal // pegged per base when the user sells

	// OperatorConfigured gates order submission; when false, confirmation
	// fails closed instead of dropping the order silently.
	OperatorConfigured bool
	BotUsername        string
}

// Engine drives the order-intake conversation: it validates each inbound
// message against the session's current state, mutates the session, and
// produces the next prompt. All collaborators are injected interfaces.
type Engine struct {
	logger   *zap.Logger
	cfg      Config
	sessions *session.Manager
	quotes   QuoteFetcher
	notifier Notifier
	events   EventSink // may be nil
	audit    Auditor   // may be nil
}

// NewEngine constructs the conversation engine.
func NewEngine(
	logger *zap.Logger,
	cfg Config,
	sessions *session.Manager,
	quotes QuoteFetcher,
	notifier Notifier,
	events EventSink,
	audit Auditor,
) *Engine {
	return &Engine{
		logger:   logger,
		cfg:      cfg,
		sessions: sessions,
		quotes:   quotes,
		notifier: notifier,
		events:   events,
		audit:    audit,
	}
}

// Handle processes one inbound message and returns the replies to send.
func (e *Engine) Handle(ctx context.Context, in Inbound) []Reply {
	// Orders are taken in private one-to-one chats only.
	if !in.Private {
		e.discard(ctx, in.UserID, "privacy")
		return e.reply(in, Reply{Text: e.groupRedirectText(in.UserName), RemoveKeyboard: true})
	}

	if in.Command == "start" {
		return e.handleStart(in)
	}
	if in.Command != "" {
		// Any other command cancels the flow.
		return e.cancel(ctx, in, "Order cancelled. Thanks for using the desk.")
	}

	sess := e.sessions.Get(in.UserID)
	if sess == nil {
		return e.reply(in, Reply{Text: "Send /start to begin a new order."})
	}

	switch sess.State {
	case session.StateChooseOperation:
		return e.handleChooseOperation(ctx, in, sess)
	case session.StateChooseAsset:
		return e.handleChooseAsset(in, sess)
	case session.StateEnterQuantity:
		return e.handleEnterQuantity(in, sess)
	case session.StateChooseSettlement:
		return e.handleChooseSettlement(in, sess)
	case session.StateConfirm:
		return e.handleConfirm(ctx, in, sess)
	default:
		e.logger.Error("flow.unknown_state",
			zap.Int64("user_id", in.UserID),
			zap.Int("state", int(sess.State)))
		e.sessions.Delete(in.UserID)
		return e.reply(in, Reply{Text: "Something went wrong. Send /start to begin again.", RemoveKeyboard: true})
	}
}

func (e *Engine) handleStart(in Inbound) []Reply {
	e.sessions.Start(in.UserID, in.UserName)
	metrics.IncSession("started")
	e.logger.Info("flow.session_started",
		zap.Int64("user_id", in.UserID),
		zap.String("user", in.UserName))
	return e.reply(in, Reply{
		Text:    e.welcomeText(in.UserName),
		Choices: operationKeyboard(),
	})
}

func (e *Engine) handleChooseOperation(ctx context.Context, in Inbound, sess *session.Session) []Reply {
	op, ok := parseOperation(in.Text)
	if !ok {
		return e.reply(in, Reply{
			Text:    "Invalid choice. Please press \"" + labelBuy + "\" or \"" + labelSell + "\".",
			Choices: operationKeyboard(),
		})
	}

	snapshot, err := e.quotes.FetchSnapshot(ctx)
	if err != nil {
		e.logger.Warn("flow.quotes_unavailable",
			zap.Int64("user_id", in.UserID),
			zap.Error(err))
		metrics.IncSession("failed")
		e.sessions.Delete(in.UserID)
		return e.reply(in, Reply{
			Text:           "Sorry, live prices are unavailable right now. Please try again later with /start.",
			RemoveKeyboard: true,
		})
	}

	sess.Operation = op
	sess.Snapshot = snapshot
	sess.State = session.StateChooseAsset

	return e.reply(in, Reply{
		Text:    "You chose: " + string(op) + ".\nPress an asset symbol to continue:",
		Choices: assetKeyboard(snapshot),
	})
}

func (e *Engine) handleChooseAsset(in Inbound, sess *session.Session) []Reply {
	if !sess.Ready(session.StateChooseAsset) {
		return e.restart(in)
	}

	symbol := strings.ToUpper(strings.TrimSpace(in.Text))
	entry, ok := sess.Snapshot[symbol]
	if !ok {
		return e.reply(in, Reply{
			Text:    "Unknown asset symbol. Please pick one of the listed assets.",
			Choices: assetKeyboard(sess.Snapshot),
		})
	}

	sess.Symbol = symbol
	sess.MarketRate = entry.Rate(sess.Operation)
	sess.FeePct = entry.FeePct(sess.Operation)
	sess.State = session.StateEnterQuantity

	return e.reply(in, Reply{
		Text:           assetChosenText(sess),
		RemoveKeyboard: true,
	})
}

func (e *Engine) handleEnterQuantity(in Inbound, sess *session.Session) []Reply {
	if !sess.Ready(session.StateEnterQuantity) {
		return e.restart(in)
	}

	qty, err := decimal.NewFromString(strings.TrimSpace(in.Text))
	if err != nil || !qty.IsPositive() {
		return e.reply(in, Reply{Text: "Invalid quantity. Please enter a positive number:"})
	}

	sess.Quantity = qty
	sess.State = session.StateChooseSettlement

	return e.reply(in, Reply{
		Text:    "✅ Quantity received.\n\nChoose the currency you prefer to pay/receive in:",
		Choices: e.settlementKeyboard(),
	})
}

func (e *Engine) handleChooseSettlement(in Inbound, sess *session.Session) []Reply {
	if !sess.Ready(session.StateChooseSettlement) {
		return e.restart(in)
	}

	kind, ok := e.parseSettlement(in.Text)
	if !ok {
		return e.reply(in, Reply{
			Text:    "Invalid settlement currency. Please choose " + e.cfg.BaseFiat + " or " + e.cfg.PeggedFiat + ".",
			Choices: e.settlementKeyboard(),
		})
	}

	sess.Settlement = kind
	if kind == model.SettlementBase {
		sess.Currency = e.cfg.BaseFiat
		sess.FXRate = decimal.NewFromInt(1)
	} else {
		sess.Currency = e.cfg.PeggedFiat
		if sess.Operation == model.OperationBuy {
			sess.FXRate = e.cfg.FiatBuyRate
		} else {
			sess.FXRate = e.cfg.FiatSellRate
		}
	}

	// Pricing runs exactly once per session, on this transition.
	quote := pricing.Compute(sess.Operation, sess.Quantity, sess.MarketRate, sess.FeePct, sess.FXRate)
	sess.TotalAmount = quote.TotalAmount
	sess.FeeAmount = quote.FeeAmount
	sess.State = session.StateConfirm

	e.logger.Info("flow.order_priced",
		zap.Int64("user_id", in.UserID),
		zap.String("operation", string(sess.Operation)),
		zap.String("symbol", sess.Symbol),
		zap.String("total", sess.TotalAmount.String()),
		zap.String("currency", sess.Currency))

	return e.reply(in, Reply{
		Text:    e.summaryText(sess),
		Choices: confirmKeyboard(),
	})
}

func (e *Engine) handleConfirm(ctx context.Context, in Inbound, sess *session.Session) []Reply {
	if !sess.Ready(session.StateConfirm) {
		return e.restart(in)
	}

	switch {
	case in.Text == labelCancel || strings.EqualFold(strings.TrimSpace(in.Text), "cancel"):
		return e.cancel(ctx, in, "Order cancelled. Thanks for using the desk.")

	case in.Text == labelConfirm:
		return e.submit(ctx, in, sess)

	default:
		return e.reply(in, Reply{
			Text:    "Please press \"" + labelConfirm + "\" or \"" + labelCancel + "\".",
			Choices: confirmKeyboard(),
		})
	}
}

func (e *Engine) submit(ctx context.Context, in Inbound, sess *session.Session) []Reply {
	if !e.cfg.OperatorConfigured {
		e.logger.Error("flow.operator_not_configured", zap.Int64("user_id", in.UserID))
		metrics.IncSession("failed")
		e.sessions.Delete(in.UserID)
		return e.reply(in, Reply{
			Text:           "❌ Sorry, the desk is not configured to receive orders right now. Your order was not sent.",
			RemoveKeyboard: true,
		})
	}

	order := sess.Summary()
	order.SubmittedAt = time.Now().UTC()
	order.Instruction = operatorInstruction()

	if err := e.notifier.NotifyOperator(ctx, order); err != nil {
		e.logger.Error("flow.operator_notify_failed",
			zap.Int64("user_id", in.UserID),
			zap.Error(err))
		metrics.IncError("flow", "notify_failed")
		metrics.IncSession("failed")
		e.sessions.Delete(in.UserID)
		return e.reply(in, Reply{
			Text:           "❌ We could not deliver your order to the desk. Please try again later with /start.",
			RemoveKeyboard: true,
		})
	}

	if e.audit != nil {
		if err := e.audit.RecordOrder(ctx, order); err != nil {
			e.logger.Warn("flow.audit_failed", zap.Int64("user_id", in.UserID), zap.Error(err))
		}
	}
	if e.events != nil {
		if err := e.events.OrderSubmitted(ctx, order); err != nil {
			e.logger.Warn("flow.event_publish_failed", zap.Int64("user_id", in.UserID), zap.Error(err))
		}
	}

	metrics.IncSession("submitted")
	e.sessions.Delete(in.UserID)
	e.logger.Info("flow.order_submitted",
		zap.Int64("user_id", in.UserID),
		zap.String("symbol", order.Symbol),
		zap.String("total", order.TotalAmount.String()),
		zap.String("currency", order.Currency))

	return e.reply(in, Reply{
		Text:           "✅ Your order was sent. The desk will contact you shortly in this private chat to complete it.",
		RemoveKeyboard: true,
	})
}

// cancel terminates the user's session (if any) with an acknowledgment.
func (e *Engine) cancel(ctx context.Context, in Inbound, text string) []Reply {
	e.discard(ctx, in.UserID, "cancelled")
	return e.reply(in, Reply{Text: text, RemoveKeyboard: true})
}

// discard deletes the session and emits the cancellation event when one existed.
func (e *Engine) discard(ctx context.Context, userID int64, reason string) {
	if e.sessions.Get(userID) == nil {
		return
	}
	e.sessions.Delete(userID)
	metrics.IncSession("cancelled")
	e.logger.Info("flow.session_discarded",
		zap.Int64("user_id", userID),
		zap.String("reason", reason))
	if e.events != nil {
		if err := e.events.OrderCancelled(ctx, userID); err != nil {
			e.logger.Debug("flow.cancel_event_failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
}

// restart handles a session whose prerequisite fields are missing (should not
// happen; guards the step-ordering invariant).
func (e *Engine) restart(in Inbound) []Reply {
	e.logger.Error("flow.session_incomplete", zap.Int64("user_id", in.UserID))
	e.sessions.Delete(in.UserID)
	return e.reply(in, Reply{Text: "Something went wrong with your order. Send /start to begin again.", RemoveKeyboard: true})
}

func (e *Engine) reply(in Inbound, r Reply) []Reply {
	r.ChatID = in.ChatID
	return []Reply{r}
}

func parseOperation(text string) (model.Operation, bool) {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "BUY"):
		return model.OperationBuy, true
	case strings.Contains(upper, "SELL"):
		return model.OperationSell, true
	default:
		return "", false
	}
}

func (e *Engine) parseSettlement(text string) (model.SettlementKind, bool) {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, strings.ToUpper(e.cfg.BaseFiat)):
		return model.SettlementBase, true
	case strings.Contains(upper, strings.ToUpper(e.cfg.PeggedFiat)):
		return model.SettlementPegged, true
	default:
		return "", false
	}
}
