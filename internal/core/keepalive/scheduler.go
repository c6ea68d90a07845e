// Package keepalive emits outbound heartbeat traffic so idle-suspending
// hosts keep the process alive. The scheduler runs independently of the
// request path and shares only read-only status with the health surface.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/bargainbliss/linkbot/internal/core"
	"github.com/bargainbliss/linkbot/internal/metrics"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 5 * time.Second

	// Ticks with every target failing are operational noise until the
	// streak is long enough to matter to a liveness probe.
	unhealthyAfter = 5
)

// Scheduler pings an ordered target chain on a fixed interval: primary
// first, then each fallback until one succeeds or all are exhausted. An
// exhausted tick is logged and counted, never fatal.
type Scheduler struct {
	Targets  []core.HeartbeatTarget
	Interval time.Duration
	Timeout  time.Duration

	Client *http.Client
	Logger *logging.Logger
	Clock  func() time.Time

	// Ticks overrides the interval ticker in tests.
	Ticks <-chan time.Time

	mu     sync.Mutex
	status core.HeartbeatStatus
}

// New builds a scheduler over the given chain. The first target is treated
// as primary regardless of its Role field.
func New(targets []core.HeartbeatTarget, interval, timeout time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scheduler{Targets: targets, Interval: interval, Timeout: timeout}
}

// Run executes the tick loop until the context is cancelled. The first
// round fires immediately so a fresh deploy registers activity before the
// first interval elapses. Cancellation waits out at most one in-flight
// attempt (bounded by Timeout).
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.Targets) == 0 {
		if s.Logger != nil {
			s.Logger.Warn("Keep-alive disabled: no heartbeat targets configured")
		}
		return
	}

	s.tick(ctx)

	ticks := s.Ticks
	if ticks == nil {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			s.tick(ctx)
		}
	}
}

// tick runs one Pinging round over the chain with early exit on success.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()

	var lastErr error
	for _, target := range s.Targets {
		if ctx.Err() != nil {
			return
		}

		err := s.ping(ctx, target.URL)
		metrics.RecordHeartbeat(string(target.Role), err == nil)
		if err == nil {
			s.recordSuccess(now, target)
			return
		}
		lastErr = err

		if s.Logger != nil {
			s.Logger.Debug("Heartbeat target failed",
				zap.String("target", target.URL),
				zap.String("role", string(target.Role)),
				zap.Error(err))
		}
	}

	streak := s.recordFailure(now, lastErr)
	if s.Logger != nil {
		s.Logger.Warn("Heartbeat round exhausted all targets",
			zap.Int("targets", len(s.Targets)),
			zap.Int("consecutive_failures", streak),
			zap.Error(lastErr))
	}
}

func (s *Scheduler) ping(ctx context.Context, targetURL string) error {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.New("heartbeat status " + strconv.Itoa(resp.StatusCode))
	}
	return nil
}

// Status returns a copy of the published scheduler state.
func (s *Scheduler) Status() core.HeartbeatStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CheckHealth reports unhealthy once the all-target failure streak is long
// enough to threaten the host's idle threshold.
func (s *Scheduler) CheckHealth(ctx context.Context) error {
	status := s.Status()
	if status.ConsecutiveFailures >= unhealthyAfter {
		return fmt.Errorf("heartbeat failing for %d consecutive rounds", status.ConsecutiveFailures)
	}
	return nil
}

func (s *Scheduler) recordSuccess(now time.Time, target core.HeartbeatTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Ticks++
	s.status.LastTick = now
	s.status.LastSuccess = now
	s.status.LastTarget = target.URL
	s.status.LastError = ""
	s.status.ConsecutiveFailures = 0
}

func (s *Scheduler) recordFailure(now time.Time, err error) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Ticks++
	s.status.LastTick = now
	s.status.LastTarget = ""
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = "no heartbeat targets configured"
	}
	s.status.ConsecutiveFailures++
	return s.status.ConsecutiveFailures
}

func (s *Scheduler) client() *http.Client {
	if s != nil && s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func (s *Scheduler) timeout() time.Duration {
	if s != nil && s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

func (s *Scheduler) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// Chain assembles the target list from a primary URL and ordered fallbacks,
// skipping empty entries.
func Chain(primary string, fallbacks []string) []core.HeartbeatTarget {
	targets := make([]core.HeartbeatTarget, 0, len(fallbacks)+1)
	if primary != "" {
		targets = append(targets, core.HeartbeatTarget{URL: primary, Role: core.RolePrimary})
	}
	for _, u := range fallbacks {
		if u == "" {
			continue
		}
		targets = append(targets, core.HeartbeatTarget{URL: u, Role: core.RoleFallback})
	}
	return targets
}
