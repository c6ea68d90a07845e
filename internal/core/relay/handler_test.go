package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bargainbliss/linkbot/internal/core/affiliate"
	"github.com/bargainbliss/linkbot/internal/core/messages"
	"github.com/bargainbliss/linkbot/internal/core/quota"
)

const successEnvelope = `{
	"aliexpress_affiliate_link_generate_response": {
		"resp_result": {
			"resp_code": 200,
			"resp_msg": "success",
			"result": {
				"promotion_links": {
					"promotion_link": [
						{"promotion_link": "https://s.click.aliexpress.com/e/_opegQu9"}
					]
				}
			}
		}
	}
}`

func newHandler(gatewayURL string, limit int) *Handler {
	return &Handler{
		Quota: quota.New(limit, time.Hour),
		Builder: &affiliate.Builder{
			AppKey:      "key",
			Secret:      "secret",
			TrackingID:  "bargainbliss_ai_bot",
			BaseURL:     gatewayURL,
			Timeout:     2 * time.Second,
			MaxAttempts: 2,
			Backoff:     time.Millisecond,
		},
		Catalog: messages.New(nil),
	}
}

func TestHandleSuccess(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, successEnvelope)
	}))
	defer gateway.Close()

	h := newHandler(gateway.URL, 10)

	reply := h.Handle(context.Background(), Request{
		UserID:  7,
		ChatID:  7,
		Text:    "check this out https://www.aliexpress.com/item/1005006543210987.html so cheap!",
		Private: true,
	})

	require.Equal(t, OutcomeSuccess, reply.Outcome)
	require.Equal(t, "https://s.click.aliexpress.com/e/_opegQu9", reply.TrackingURL)
	require.Contains(t, reply.Text, "https://s.click.aliexpress.com/e/_opegQu9")
	require.NotContains(t, reply.Text, "{affiliate_url}")
}

func TestHandleQuotaDenied(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, successEnvelope)
	}))
	defer gateway.Close()

	h := newHandler(gateway.URL, 1)
	req := Request{
		UserID:  7,
		ChatID:  7,
		Text:    "https://www.aliexpress.com/item/123456.html",
		Private: true,
	}

	first := h.Handle(context.Background(), req)
	require.Equal(t, OutcomeSuccess, first.Outcome)

	second := h.Handle(context.Background(), req)
	require.Equal(t, OutcomeQuotaDenied, second.Outcome)
	require.NotContains(t, second.Text, "{retry_after}")
}

func TestHandleUnrecognizedChargesQuota(t *testing.T) {
	h := newHandler("http://unused.invalid", 2)

	for i := 0; i < 2; i++ {
		reply := h.Handle(context.Background(), Request{
			UserID:  3,
			ChatID:  3,
			Text:    "no link here, just chatter",
			Private: true,
		})
		require.Equal(t, OutcomeUnrecognized, reply.Outcome)
	}

	// Both unrecognized messages consumed the budget
	reply := h.Handle(context.Background(), Request{
		UserID:  3,
		ChatID:  3,
		Text:    "https://www.aliexpress.com/item/123456.html",
		Private: true,
	})
	require.Equal(t, OutcomeQuotaDenied, reply.Outcome)
}

func TestHandleNetworkFailure(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer gateway.Close()

	h := newHandler(gateway.URL, 10)

	reply := h.Handle(context.Background(), Request{
		UserID:  7,
		ChatID:  7,
		Text:    "https://www.aliexpress.com/item/123456.html",
		Private: true,
	})

	require.Equal(t, OutcomeNetworkError, reply.Outcome)
}

func TestHandleAPIFailure(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error_response": {"code": 25, "msg": "Invalid signature"}}`)
	}))
	defer gateway.Close()

	h := newHandler(gateway.URL, 10)

	reply := h.Handle(context.Background(), Request{
		UserID:  7,
		ChatID:  7,
		Text:    "https://www.aliexpress.com/item/123456.html",
		Private: true,
	})

	require.Equal(t, OutcomeAPIError, reply.Outcome)
}

func TestHandleGroupChatRefused(t *testing.T) {
	h := newHandler("http://unused.invalid", 5)

	reply := h.Handle(context.Background(), Request{
		UserID:  9,
		ChatID:  -100123,
		Text:    "https://www.aliexpress.com/item/123456.html",
		Private: false,
	})

	require.Equal(t, OutcomePrivateOnly, reply.Outcome)
	// Group messages are refused before quota admission
	require.Equal(t, 0, h.Quota.Count(9))
}

func TestFormatRetryAfter(t *testing.T) {
	require.Equal(t, "a moment", formatRetryAfter(0))
	require.Equal(t, "30s", formatRetryAfter(30*time.Second))
	require.Equal(t, "30s", formatRetryAfter(29*time.Second+200*time.Millisecond))
	require.Equal(t, "45m0s", formatRetryAfter(44*time.Minute+10*time.Second))
}
