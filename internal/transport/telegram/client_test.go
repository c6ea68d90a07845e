package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetMe(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"ok": true, "result": {"id": 42, "is_bot": true, "username": "bargainbliss_ai_bot"}}`)
	}))
	defer server.Close()

	client := &Client{Token: "123:abc", BaseURL: server.URL}

	user, err := client.GetMe(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/bot123:abc/getMe", gotPath)
	require.Equal(t, int64(42), user.ID)
	require.Equal(t, "bargainbliss_ai_bot", user.Username)
}

func TestGetUpdatesSendsOffsetAndTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "17", r.Form.Get("offset"))
		require.Equal(t, "30", r.Form.Get("timeout"))

		fmt.Fprint(w, `{"ok": true, "result": [
			{"update_id": 17, "message": {"message_id": 1, "from": {"id": 5}, "chat": {"id": 5, "type": "private"}, "text": "hi"}}
		]}`)
	}))
	defer server.Close()

	client := &Client{Token: "123:abc", BaseURL: server.URL}

	updates, err := client.GetUpdates(context.Background(), 17, 0)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.Equal(t, int64(17), updates[0].UpdateID)
	require.Equal(t, "hi", updates[0].Message.Text)
	require.True(t, updates[0].Message.Chat.IsPrivate())
}

func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "99", r.Form.Get("chat_id"))
		require.Equal(t, "hello there", r.Form.Get("text"))
		fmt.Fprint(w, `{"ok": true, "result": {}}`)
	}))
	defer server.Close()

	client := &Client{Token: "123:abc", BaseURL: server.URL}
	require.NoError(t, client.SendMessage(context.Background(), 99, "hello there"))
}

func TestCallSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"ok": false, "error_code": 401, "description": "Unauthorized"}`)
	}))
	defer server.Close()

	client := &Client{Token: "bad-token", BaseURL: server.URL}

	_, err := client.GetMe(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.Contains(t, err.Error(), "Unauthorized")
}

func TestIsCommand(t *testing.T) {
	require.True(t, isCommand("/start", "start"))
	require.True(t, isCommand("/start@bargainbliss_ai_bot", "start"))
	require.True(t, isCommand("  /help extra words", "help"))
	require.False(t, isCommand("start", "start"))
	require.False(t, isCommand("/started", "start"))
	require.False(t, isCommand("https://www.aliexpress.com/item/1.html", "start"))
}

func TestEndpointEmbedsToken(t *testing.T) {
	client := &Client{Token: "123:abc"}
	endpoint := client.endpoint("sendMessage")
	require.True(t, strings.HasPrefix(endpoint, DefaultAPIBaseURL))
	require.Contains(t, endpoint, "/bot123:abc/sendMessage")
}
