package relay

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bargainbliss/linkbot/internal/core"
	"github.com/bargainbliss/linkbot/internal/core/affiliate"
	"github.com/bargainbliss/linkbot/internal/core/messages"
	"github.com/bargainbliss/linkbot/internal/core/quota"
	"github.com/bargainbliss/linkbot/internal/core/recognize"
	"github.com/bargainbliss/linkbot/internal/metrics"
)

// Outcome classifies how a request was resolved.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeQuotaDenied  Outcome = "quota_denied"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeAPIError     Outcome = "api_error"
	OutcomePrivateOnly  Outcome = "private_only"
)

// Request is one inbound user message to process.
type Request struct {
	UserID  int64
	ChatID  int64
	Text    string
	Private bool
}

// Reply is the rendered response for a request.
type Reply struct {
	Text    string
	Outcome Outcome

	// TrackingURL is set on success for callers that need the raw link.
	TrackingURL string
}

// Handler runs a request through quota admission, link recognition,
// and affiliate conversion, rendering the matching reply template.
type Handler struct {
	Quota   *quota.Limiter
	Builder *affiliate.Builder
	Catalog *messages.Catalog
	Logger  *logging.Logger
}

// Handle processes one inbound message. Quota is charged on admission,
// before recognition, so unrecognized messages still consume a slot.
func (h *Handler) Handle(ctx context.Context, req Request) Reply {
	correlationID := uuid.New().String()

	if !req.Private {
		return h.reply(req, correlationID, OutcomePrivateOnly, messages.KeyPrivateChatOnly, nil)
	}

	decision := h.Quota.Admit(req.UserID)
	if !decision.Allowed {
		metrics.RecordQuotaDenial()
		vars := map[string]string{
			"retry_after": formatRetryAfter(decision.RetryAfter),
		}
		return h.reply(req, correlationID, OutcomeQuotaDenied, messages.KeyRateLimit, vars)
	}

	ref, err := recognize.Extract(req.Text)
	if err != nil {
		return h.reply(req, correlationID, OutcomeUnrecognized, messages.KeyInvalidLink, nil)
	}

	start := time.Now()
	result := h.Builder.Build(ctx, ref)
	metrics.RecordLinkBuildDuration(time.Since(start), result.OK())

	if !result.OK() {
		h.logFailure(req, correlationID, ref, result)
		if result.Failure.Kind == core.FailureNetwork {
			return h.reply(req, correlationID, OutcomeNetworkError, messages.KeyNetworkError, nil)
		}
		return h.reply(req, correlationID, OutcomeAPIError, messages.KeyAPIError, nil)
	}

	if h.Logger != nil {
		h.Logger.Info("affiliate link built",
			zap.String("correlation_id", correlationID),
			zap.Int64("user_id", req.UserID),
			zap.String("product_id", ref.ID),
			zap.Int("attempts", result.Attempts),
		)
	}

	vars := map[string]string{"affiliate_url": result.TrackingURL}
	reply := h.reply(req, correlationID, OutcomeSuccess, messages.KeyAffiliateSuccess, vars)
	reply.TrackingURL = result.TrackingURL
	return reply
}

func (h *Handler) reply(req Request, correlationID string, outcome Outcome, key string, vars map[string]string) Reply {
	metrics.RecordLinkRequest(string(outcome))

	if h.Logger != nil && outcome != OutcomeSuccess {
		h.Logger.Debug("request resolved",
			zap.String("correlation_id", correlationID),
			zap.Int64("user_id", req.UserID),
			zap.String("outcome", string(outcome)),
		)
	}

	return Reply{
		Text:    h.Catalog.Render(key, vars),
		Outcome: outcome,
	}
}

func (h *Handler) logFailure(req Request, correlationID string, ref core.ProductReference, result core.LinkResult) {
	if h.Logger == nil {
		return
	}

	h.Logger.Warn("affiliate link build failed",
		zap.String("correlation_id", correlationID),
		zap.Int64("user_id", req.UserID),
		zap.String("product_id", ref.ID),
		zap.String("failure_kind", string(result.Failure.Kind)),
		zap.String("detail", result.Failure.Detail),
		zap.Int("attempts", result.Attempts),
	)
}

// formatRetryAfter renders a wait duration for user-facing text,
// rounding up so users never retry a moment too early.
func formatRetryAfter(d time.Duration) string {
	if d <= 0 {
		return "a moment"
	}

	if d < time.Minute {
		seconds := (d + time.Second - 1) / time.Second * time.Second
		return seconds.String()
	}

	minutes := (d + time.Minute - 1) / time.Minute * time.Minute
	return minutes.String()
}
