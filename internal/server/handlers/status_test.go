package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStatusHandlerWithoutProviderReportsStarting(t *testing.T) {
	SetStatusProvider(nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()

	StatusHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "starting" {
		t.Fatalf("expected starting status, got %s", resp.Status)
	}
}

func TestStatusHandlerUsesProviderSnapshot(t *testing.T) {
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	SetStatusProvider(func() StatusResponse {
		return StatusResponse{
			Status:    "running",
			Uptime:    "2h15m0s",
			StartedAt: started,
			Paused:    true,
			Quota: QuotaStatus{
				Limit:       60,
				Window:      "1h0m0s",
				ActiveUsers: 3,
			},
			Affiliate: AffiliateStatus{Reachable: true},
		}
	})
	defer SetStatusProvider(nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()

	StatusHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "running" {
		t.Fatalf("expected running status, got %s", resp.Status)
	}

	if !resp.Paused {
		t.Fatal("expected paused to be true")
	}

	if resp.Quota.ActiveUsers != 3 {
		t.Fatalf("expected 3 active users, got %d", resp.Quota.ActiveUsers)
	}

	if !resp.Affiliate.Reachable {
		t.Fatal("expected affiliate gateway to be reachable")
	}
}
