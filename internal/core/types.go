package core

import "time"

// FailureKind classifies why link generation failed.
type FailureKind string

const (
	FailureNetwork FailureKind = "network"
	FailureAPI     FailureKind = "api"
)

// ProductReference is the normalized product identity extracted from a
// marketplace URL. It is immutable once constructed and is only ever built
// from a recognized domain.
type ProductReference struct {
	RawURL       string `json:"raw_url"`
	ID           string `json:"id"`
	CanonicalURL string `json:"canonical_url"`
	Shortened    bool   `json:"shortened"`
}

// LinkResult is the outcome of one affiliate link generation attempt.
// Exactly one of TrackingURL or Failure is populated.
type LinkResult struct {
	TrackingURL string       `json:"tracking_url,omitempty"`
	Failure     *LinkFailure `json:"failure,omitempty"`
	Attempts    int          `json:"attempts"`
}

// LinkFailure carries the classified failure for diagnostics. Detail is
// internal only and never shown to chat users.
type LinkFailure struct {
	Kind   FailureKind `json:"kind"`
	Detail string      `json:"detail"`
}

// OK reports whether the result carries a tracking URL.
func (r LinkResult) OK() bool {
	return r.Failure == nil && r.TrackingURL != ""
}

// HeartbeatRole distinguishes the primary target from ordered fallbacks.
type HeartbeatRole string

const (
	RolePrimary  HeartbeatRole = "primary"
	RoleFallback HeartbeatRole = "fallback"
)

// HeartbeatTarget is one destination in the keep-alive chain.
type HeartbeatTarget struct {
	URL  string        `json:"url"`
	Role HeartbeatRole `json:"role"`
}

// HeartbeatStatus is the scheduler state published to the health surface.
type HeartbeatStatus struct {
	LastTick            time.Time `json:"last_tick"`
	LastSuccess         time.Time `json:"last_success"`
	LastTarget          string    `json:"last_target,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Ticks               uint64    `json:"ticks"`
}
