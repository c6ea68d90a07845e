// Package affiliate generates monetized tracking links through the
// marketplace affiliate gateway. It is the only place API credentials are
// used; the secret is never logged or echoed in errors.
package affiliate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/bargainbliss/linkbot/internal/core"
	"github.com/bargainbliss/linkbot/internal/core/recognize"
)

const (
	DefaultBaseURL = "https://api-sg.aliexpress.com/sync"
	linkMethod     = "aliexpress.affiliate.link.generate"

	DefaultTimeout     = 8 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoff     = 500 * time.Millisecond
)

// Builder calls the affiliate gateway to turn product references into
// tracking links. Zero-value fields fall back to package defaults.
type Builder struct {
	AppKey     string
	Secret     string
	TrackingID string
	BaseURL    string

	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration

	Client *http.Client
	Clock  func() time.Time

	mu            sync.Mutex
	lastReachable bool
	lastChecked   time.Time
}

// Reachability reports whether the last gateway call succeeded at the
// transport level, for the health surface.
func (b *Builder) Reachability() (reachable bool, checked time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastReachable, b.lastChecked
}

func (b *Builder) setReachable(ok bool) {
	b.mu.Lock()
	b.lastReachable = ok
	b.lastChecked = b.now()
	b.mu.Unlock()
}

// Build generates a tracking link for the reference. Transient transport
// failures are retried with doubling backoff up to the attempt budget;
// gateway-level rejections fail immediately because retrying cannot change
// the outcome.
func (b *Builder) Build(ctx context.Context, ref core.ProductReference) core.LinkResult {
	if ctx == nil {
		ctx = context.Background()
	}

	if ref.Shortened {
		expanded, err := b.expand(ctx, ref.CanonicalURL)
		if err != nil {
			return failure(core.FailureNetwork, fmt.Sprintf("expand shortened link: %v", err), 1)
		}
		resolved, err := recognize.Extract(expanded)
		if err != nil || resolved.Shortened {
			return failure(core.FailureAPI, "shortened link did not resolve to a product", 1)
		}
		ref = resolved
	}

	maxAttempts := b.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	backoff := b.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	var lastErr string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, retryable := b.attempt(ctx, ref)
		result.Attempts = attempt
		if !retryable {
			return result
		}
		lastErr = result.Failure.Detail

		if attempt < maxAttempts {
			if err := sleep(ctx, backoff); err != nil {
				return failure(core.FailureNetwork, lastErr, attempt)
			}
			backoff *= 2
		}
	}

	return failure(core.FailureNetwork, lastErr, maxAttempts)
}

// attempt performs one gateway call. The second return value reports
// whether the failure is transient and worth retrying.
func (b *Builder) attempt(ctx context.Context, ref core.ProductReference) (core.LinkResult, bool) {
	requestURL, err := b.requestURL(ref)
	if err != nil {
		return failure(core.FailureAPI, err.Error(), 0), false
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return failure(core.FailureAPI, err.Error(), 0), false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client().Do(req)
	if err != nil {
		b.setReachable(false)
		return failure(core.FailureNetwork, err.Error(), 0), true
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	b.setReachable(true)

	if resp.StatusCode >= 500 {
		return failure(core.FailureNetwork, "gateway status "+strconv.Itoa(resp.StatusCode), 0), true
	}
	if resp.StatusCode != http.StatusOK {
		return failure(core.FailureAPI, "gateway status "+strconv.Itoa(resp.StatusCode), 0), false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return failure(core.FailureNetwork, err.Error(), 0), true
	}

	link, apiErr := parseResponse(body)
	if apiErr != "" {
		return failure(core.FailureAPI, apiErr, 0), false
	}

	if !wellFormed(link) {
		return failure(core.FailureAPI, "gateway returned malformed promotion link", 0), false
	}

	return core.LinkResult{TrackingURL: link}, false
}

// requestURL assembles the signed gateway URL for a reference.
func (b *Builder) requestURL(ref core.ProductReference) (string, error) {
	baseURL := b.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid gateway url: %w", err)
	}

	params := map[string]string{
		"method":              linkMethod,
		"app_key":             b.AppKey,
		"sign_method":         "sha256",
		"timestamp":           b.now().Format("2006-01-02 15:04:05"),
		"v":                   "2.0",
		"format":              "json",
		"source_values":       ref.CanonicalURL,
		"tracking_id":         b.TrackingID,
		"promotion_link_type": "0",
	}
	params["sign"] = sign(params, b.Secret)

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	base.RawQuery = query.Encode()
	return base.String(), nil
}

// expand follows redirects on a shortened share link and returns the final
// URL the marketplace lands on.
func (b *Builder) expand(ctx context.Context, shortURL string) (string, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	expandCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(expandCtx, http.MethodGet, shortURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := b.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("expand status %d", resp.StatusCode)
	}
	if resp.Request == nil || resp.Request.URL == nil {
		return "", errors.New("redirect chain lost final url")
	}
	return resp.Request.URL.String(), nil
}

func (b *Builder) client() *http.Client {
	if b != nil && b.Client != nil {
		return b.Client
	}
	return http.DefaultClient
}

func (b *Builder) now() time.Time {
	if b != nil && b.Clock != nil {
		return b.Clock()
	}
	return time.Now().UTC()
}

// gatewayResponse mirrors the nested envelope the gateway returns. Only the
// fields the bot consumes are mapped; everything else is opaque.
type gatewayResponse struct {
	LinkGenerate *struct {
		RespResult struct {
			RespCode int    `json:"resp_code"`
			RespMsg  string `json:"resp_msg"`
			Result   struct {
				PromotionLinks struct {
					PromotionLink []struct {
						PromotionLink string `json:"promotion_link"`
					} `json:"promotion_link"`
				} `json:"promotion_links"`
			} `json:"result"`
		} `json:"resp_result"`
	} `json:"aliexpress_affiliate_link_generate_response"`
	ErrorResponse *struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error_response"`
}

// parseResponse extracts the promotion link or a gateway error description.
func parseResponse(body []byte) (link string, apiErr string) {
	var payload gatewayResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", "unparseable gateway response"
	}

	if payload.ErrorResponse != nil {
		return "", fmt.Sprintf("gateway error %d: %s", payload.ErrorResponse.Code, payload.ErrorResponse.Msg)
	}

	if payload.LinkGenerate == nil {
		return "", "gateway response missing link envelope"
	}

	result := payload.LinkGenerate.RespResult
	if result.RespCode != 0 && result.RespCode != 200 {
		return "", fmt.Sprintf("gateway rejected request (%d): %s", result.RespCode, result.RespMsg)
	}

	links := result.Result.PromotionLinks.PromotionLink
	if len(links) == 0 || links[0].PromotionLink == "" {
		return "", "gateway returned no promotion links"
	}

	return links[0].PromotionLink, ""
}

func wellFormed(link string) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func failure(kind core.FailureKind, detail string, attempts int) core.LinkResult {
	return core.LinkResult{
		Failure:  &core.LinkFailure{Kind: kind, Detail: detail},
		Attempts: attempts,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
