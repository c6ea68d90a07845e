package affiliate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bargainbliss/linkbot/internal/core"
)

func testRef() core.ProductReference {
	return core.ProductReference{
		RawURL:       "https://m.aliexpress.com/item/123456.html",
		ID:           "123456",
		CanonicalURL: "https://www.aliexpress.com/item/123456.html",
	}
}

func successBody(link string) string {
	return fmt.Sprintf(`{
		"aliexpress_affiliate_link_generate_response": {
			"resp_result": {
				"resp_code": 200,
				"result": {
					"promotion_links": {
						"promotion_link": [{"promotion_link": %q}]
					}
				}
			}
		}
	}`, link)
}

func newBuilder(baseURL string) *Builder {
	return &Builder{
		AppKey:      "test-key",
		Secret:      "test-secret",
		TrackingID:  "bargainbliss_ai_bot",
		BaseURL:     baseURL,
		Timeout:     200 * time.Millisecond,
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	}
}

func TestBuildSuccess(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		fmt.Fprint(w, successBody("https://s.click.aliexpress.com/e/_tracked"))
	}))
	defer srv.Close()

	builder := newBuilder(srv.URL)
	result := builder.Build(context.Background(), testRef())

	require.True(t, result.OK())
	require.Equal(t, "https://s.click.aliexpress.com/e/_tracked", result.TrackingURL)
	require.Equal(t, 1, result.Attempts)

	query := gotQuery.Load().(url.Values)
	require.Equal(t, "aliexpress.affiliate.link.generate", query.Get("method"))
	require.Equal(t, "bargainbliss_ai_bot", query.Get("tracking_id"))
	require.Equal(t, "https://www.aliexpress.com/item/123456.html", query.Get("source_values"))
	require.NotEmpty(t, query.Get("sign"))
	// The raw secret must never travel on the wire.
	require.Empty(t, query.Get("secret"))

	reachable, checked := builder.Reachability()
	require.True(t, reachable)
	require.False(t, checked.IsZero())
}

func TestBuildRetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			// Exceed the client timeout to simulate a hung gateway.
			time.Sleep(400 * time.Millisecond)
			return
		}
		fmt.Fprint(w, successBody("https://s.click.aliexpress.com/e/_ok"))
	}))
	defer srv.Close()

	builder := newBuilder(srv.URL)
	result := builder.Build(context.Background(), testRef())

	require.True(t, result.OK())
	require.Equal(t, 3, result.Attempts)
	require.Equal(t, int32(3), calls.Load())
}

func TestBuildExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	builder := newBuilder(srv.URL)
	result := builder.Build(context.Background(), testRef())

	require.False(t, result.OK())
	require.Equal(t, core.FailureNetwork, result.Failure.Kind)
	require.Equal(t, 3, result.Attempts)
	require.Equal(t, int32(3), calls.Load())
}

func TestBuildAPIErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"error_response": {"code": 25, "msg": "Invalid signature"}}`)
	}))
	defer srv.Close()

	builder := newBuilder(srv.URL)
	result := builder.Build(context.Background(), testRef())

	require.False(t, result.OK())
	require.Equal(t, core.FailureAPI, result.Failure.Kind)
	require.Contains(t, result.Failure.Detail, "Invalid signature")
	require.Equal(t, 1, result.Attempts)
	require.Equal(t, int32(1), calls.Load())
}

func TestBuildRejectedRespCodeNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{
			"aliexpress_affiliate_link_generate_response": {
				"resp_result": {"resp_code": 405, "resp_msg": "source_values invalid"}
			}
		}`)
	}))
	defer srv.Close()

	result := newBuilder(srv.URL).Build(context.Background(), testRef())
	require.False(t, result.OK())
	require.Equal(t, core.FailureAPI, result.Failure.Kind)
	require.Equal(t, int32(1), calls.Load())
}

func TestBuildRejectsMalformedPromotionLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, successBody("not a url"))
	}))
	defer srv.Close()

	result := newBuilder(srv.URL).Build(context.Background(), testRef())
	require.False(t, result.OK())
	require.Equal(t, core.FailureAPI, result.Failure.Kind)
}

// roundTripFunc lets tests serve marketplace hosts without DNS.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestBuildExpandsShortenedReference(t *testing.T) {
	var gatewayQuery atomic.Value
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gatewayQuery.Store(r.URL.Query().Get("source_values"))
		fmt.Fprint(w, successBody("https://s.click.aliexpress.com/e/_done"))
	}))
	defer gateway.Close()

	// Shortened link redirects to a full product page on the marketplace
	// domain; the builder must re-extract and call the gateway with the
	// canonical product URL.
	builder := newBuilder(gateway.URL)
	builder.Client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			switch r.URL.Host {
			case "s.click.aliexpress.com":
				rec := httptest.NewRecorder()
				http.Redirect(rec, r, "https://www.aliexpress.com/item/555.html", http.StatusFound)
				return rec.Result(), nil
			case "www.aliexpress.com":
				rec := httptest.NewRecorder()
				rec.WriteHeader(http.StatusOK)
				return rec.Result(), nil
			default:
				return http.DefaultTransport.RoundTrip(r)
			}
		}),
	}

	ref := core.ProductReference{
		RawURL:       "https://s.click.aliexpress.com/e/_abc",
		ID:           "e/_abc",
		CanonicalURL: "https://s.click.aliexpress.com/e/_abc",
		Shortened:    true,
	}
	result := builder.Build(context.Background(), ref)
	require.True(t, result.OK())
	require.Equal(t, "https://www.aliexpress.com/item/555.html", gatewayQuery.Load())
}

func TestSignDeterministicSortedUppercase(t *testing.T) {
	params := map[string]string{
		"b": "2",
		"a": "1",
	}
	first := sign(params, "secret")
	second := sign(map[string]string{"a": "1", "b": "2"}, "secret")

	require.Equal(t, first, second)
	require.Regexp(t, `^[0-9A-F]{64}$`, first)
	require.NotEqual(t, first, sign(params, "other-secret"))
}
