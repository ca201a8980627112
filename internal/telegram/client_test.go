package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testToken = "123456:TEST-TOKEN"

func newTestServer(t *testing.T, handler func(method string, body []byte) (int, string)) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Bot API paths are /bot<token>/<method>.
		assert.Equal(t, "/bot"+testToken, r.URL.Path[:len("/bot"+testToken)])
		method := r.URL.Path[len("/bot"+testToken)+1:]
		body, _ := io.ReadAll(r.Body)

		status, resp := handler(method, body)
		w.WriteHeader(status)
		fmt.Fprint(w, resp)
	}))
	t.Cleanup(srv.Close)

	return srv, NewClient(zap.NewNop(), nil, srv.URL, testToken, time.Second)
}

func TestGetMe(t *testing.T) {
	_, client := newTestServer(t, func(method string, body []byte) (int, string) {
		assert.Equal(t, "getMe", method)
		return 200, `{"ok":true,"result":{"id":99,"first_name":"Fory Desk","username":"forydesk_bot","is_bot":true}}`
	})

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(99), me.ID)
	assert.Equal(t, "forydesk_bot", me.Username)
}

func TestGetUpdates(t *testing.T) {
	_, client := newTestServer(t, func(method string, body []byte) (int, string) {
		assert.Equal(t, "getUpdates", method)

		var req getUpdatesRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, int64(42), req.Offset)
		assert.Equal(t, []string{"message"}, req.AllowedUpdates)

		return 200, `{"ok":true,"result":[
			{"update_id":42,"message":{"message_id":1,"text":"/start",
				"from":{"id":7,"first_name":"Omar"},
				"chat":{"id":7,"type":"private"}}}
		]}`
	})

	updates, err := client.GetUpdates(context.Background(), 42, time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(42), updates[0].UpdateID)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.True(t, updates[0].Message.Chat.Private())
}

func TestSendMessageWithKeyboard(t *testing.T) {
	var sent sendMessageRequest
	_, client := newTestServer(t, func(method string, body []byte) (int, string) {
		assert.Equal(t, "sendMessage", method)
		require.NoError(t, json.Unmarshal(body, &sent))
		return 200, `{"ok":true,"result":{}}`
	})

	kb := ReplyKeyboardMarkup{
		Keyboard:        [][]KeyboardButton{{{Text: "Buy 🛒"}, {Text: "Sell 💸"}}},
		OneTimeKeyboard: true,
		ResizeKeyboard:  true,
	}
	err := client.SendMessage(context.Background(), 7, "Choose:", kb)
	require.NoError(t, err)

	assert.Equal(t, int64(7), sent.ChatID)
	assert.Equal(t, "Choose:", sent.Text)
	require.NotNil(t, sent.ReplyMarkup)

	markup, ok := sent.ReplyMarkup.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, markup["one_time_keyboard"])
}

func TestSendTextOmitsMarkup(t *testing.T) {
	_, client := newTestServer(t, func(method string, body []byte) (int, string) {
		assert.NotContains(t, string(body), "reply_markup")
		return 200, `{"ok":true,"result":{}}`
	})

	require.NoError(t, client.SendText(context.Background(), 7, "hello"))
}

func TestCallAPIError(t *testing.T) {
	_, client := newTestServer(t, func(method string, body []byte) (int, string) {
		return 200, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`
	})

	err := client.SendText(context.Background(), 7, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked by the user")
}

func TestCallHTTPError(t *testing.T) {
	_, client := newTestServer(t, func(method string, body []byte) (int, string) {
		return 401, `{"ok":false,"error_code":401,"description":"Unauthorized"}`
	})

	_, err := client.GetMe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}
