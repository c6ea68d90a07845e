package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bargainbliss/linkbot/internal/core"
)

// StatusResponse is the operational snapshot served at /status.
type StatusResponse struct {
	Status    string                `json:"status"`
	Uptime    string                `json:"uptime"`
	StartedAt time.Time             `json:"started_at"`
	Paused    bool                  `json:"paused"`
	Quota     QuotaStatus           `json:"quota"`
	Affiliate AffiliateStatus       `json:"affiliate"`
	Heartbeat *core.HeartbeatStatus `json:"heartbeat,omitempty"`
}

// QuotaStatus summarizes the in-memory rate limiter.
type QuotaStatus struct {
	Limit       int    `json:"limit"`
	Window      string `json:"window"`
	ActiveUsers int    `json:"active_users"`
}

// AffiliateStatus reports the last observed gateway reachability.
type AffiliateStatus struct {
	Reachable   bool       `json:"reachable"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
}

// StatusProvider builds the current status snapshot.
type StatusProvider func() StatusResponse

var statusProvider StatusProvider

// SetStatusProvider wires the serve command's runtime state into /status.
func SetStatusProvider(provider StatusProvider) {
	statusProvider = provider
}

// StatusHandler serves the operational status snapshot.
func StatusHandler(w http.ResponseWriter, r *http.Request) {
	if statusProvider == nil {
		response := StatusResponse{Status: "starting"}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
		return
	}

	response := statusProvider()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
