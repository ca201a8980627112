package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fory-finance/p2p-desk/internal/httpclient"
	"github.com/fory-finance/p2p-desk/internal/metrics"
	"github.com/fory-finance/p2p-desk/internal/rate"
)

// Client wraps low-level HTTP communication with the Telegram Bot API.
type Client struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	baseURL string
	token   string
}

// NewClient constructs a Telegram Bot API client. updateTimeout is the
// getUpdates long-poll window; the underlying HTTP timeout sits above it.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, baseURL, token string, updateTimeout time.Duration) *Client {
	httpClient := &http.Client{Timeout: updateTimeout + 10*time.Second}
	exec := httpclient.New(logger, rateMgr, httpClient, 2, "telegram", func(status int, body []byte) error {
		var resp apiResponse
		_ = json.Unmarshal(body, &resp)

		logger.Warn("telegram.client_error",
			zap.Int("status", status),
			zap.Int("error_code", resp.ErrorCode),
			zap.String("description", resp.Description))

		if resp.Description != "" {
			return fmt.Errorf("telegram returned %d: %s", status, resp.Description)
		}
		return fmt.Errorf("telegram returned %d: %s", status, string(body))
	})
	return &Client{
		logger:  logger,
		exec:    exec,
		baseURL: baseURL,
		token:   token,
	}
}

// GetMe returns the bot's own account, used to learn the bot username.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(timeout.Seconds()),
		AllowedUpdates: []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage delivers text to a chat with an optional reply markup
// (ReplyKeyboardMarkup or ReplyKeyboardRemove).
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup any) error {
	req := sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	}
	return c.call(ctx, "sendMessage", req, nil)
}

// SendText delivers plain text with no keyboard change. Satisfies
// notify.MessageSender.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	return c.SendMessage(ctx, chatID, text, nil)
}

// call performs one Bot API method invocation and decodes result into out.
func (c *Client) call(ctx context.Context, method string, body, out any) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	var resp apiResponse
	err = c.exec.DoJSON(ctx, req, "telegram", &resp)
	metrics.ObserveDuration(metrics.TelegramRequestDuration, start, method)

	if err != nil {
		metrics.IncTelegramRequest(method, "error")
		return err
	}
	if !resp.OK {
		metrics.IncTelegramRequest(method, "error")
		return fmt.Errorf("telegram %s: %s", method, resp.Description)
	}
	metrics.IncTelegramRequest(method, "ok")

	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}
