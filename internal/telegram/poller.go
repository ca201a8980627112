package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fory-finance/p2p-desk/internal/flow"
)

// Poller long-polls getUpdates and hands each message to the flow engine.
// Updates from different users are handled concurrently; messages from the
// same user are serialized so session mutations never race.
type Poller struct {
	logger        *zap.Logger
	client        *Client
	engine        *flow.Engine
	updateTimeout time.Duration
	botUsername   string

	userLocks sync.Map // user_id -> *sync.Mutex
	wg        sync.WaitGroup
}

// NewPoller constructs the update loop. botUsername strips "@bot" suffixes
// from commands sent in groups.
func NewPoller(logger *zap.Logger, client *Client, engine *flow.Engine, updateTimeout time.Duration, botUsername string) *Poller {
	return &Poller{
		logger:        logger,
		client:        client,
		engine:        engine,
		updateTimeout: updateTimeout,
		botUsername:   botUsername,
	}
}

// Run polls until ctx is cancelled, then waits for in-flight handlers.
func (p *Poller) Run(ctx context.Context) {
	var offset int64

	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			return
		default:
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.updateTimeout)
		if err != nil {
			if ctx.Err() != nil {
				p.wg.Wait()
				return
			}
			p.logger.Warn("telegram.get_updates_failed", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil || update.Message.From == nil || update.Message.From.IsBot {
				continue
			}

			msg := update.Message
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.handleMessage(ctx, msg)
			}()
		}
	}
}

func (p *Poller) handleMessage(ctx context.Context, msg *Message) {
	mu := p.lockFor(msg.From.ID)
	mu.Lock()
	defer mu.Unlock()

	in := p.toInbound(msg)
	for _, reply := range p.engine.Handle(ctx, in) {
		if err := p.send(ctx, reply); err != nil {
			p.logger.Warn("telegram.reply_failed",
				zap.Int64("chat_id", reply.ChatID),
				zap.Error(err))
		}
	}
}

func (p *Poller) lockFor(userID int64) *sync.Mutex {
	if mu, ok := p.userLocks.Load(userID); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := p.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// toInbound converts a Telegram message to the flow's transport-agnostic form.
func (p *Poller) toInbound(msg *Message) flow.Inbound {
	in := flow.Inbound{
		UserID:   msg.From.ID,
		ChatID:   msg.Chat.ID,
		UserName: displayName(msg.From),
		Text:     msg.Text,
		Private:  msg.Chat.Private(),
	}

	if cmd, ok := parseCommand(msg.Text, p.botUsername); ok {
		in.Command = cmd
	}
	return in
}

func (p *Poller) send(ctx context.Context, reply flow.Reply) error {
	var markup any
	switch {
	case len(reply.Choices) > 0:
		kb := ReplyKeyboardMarkup{OneTimeKeyboard: true, ResizeKeyboard: true}
		for _, row := range reply.Choices {
			var btns []KeyboardButton
			for _, label := range row {
				btns = append(btns, KeyboardButton{Text: label})
			}
			kb.Keyboard = append(kb.Keyboard, btns)
		}
		markup = kb
	case reply.RemoveKeyboard:
		markup = ReplyKeyboardRemove{RemoveKeyboard: true}
	}

	return p.client.SendMessage(ctx, reply.ChatID, reply.Text, markup)
}

func displayName(u *User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "there"
}

// parseCommand extracts the bare command name from "/cmd" or "/cmd@botname".
func parseCommand(text, botUsername string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		// Ignore commands addressed to another bot.
		if botUsername != "" && !strings.EqualFold(cmd[at+1:], botUsername) {
			return "", false
		}
		cmd = cmd[:at]
	}
	if cmd == "" {
		return "", false
	}
	return strings.ToLower(cmd), true
}
