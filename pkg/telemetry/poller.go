// Package telemetry implements the two vendor pollers of spec.md §4.4:
// independent background workers that fetch, normalize, and persist
// inverter/BMS telemetry, each the sole writer of its vendor's table.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/commandcenter/commandcenter/pkg/slack"
	"github.com/commandcenter/commandcenter/pkg/store"
)

const (
	defaultFailureThreshold = 3
	defaultStaleMultiple    = 3 // stale_window = defaultStaleMultiple * poll interval
	baseBackoff             = 2 * time.Second
	maxBackoff              = 2 * time.Minute

	// criticalSOCThreshold triggers an operator alert, distinct from
	// the Planner Specialist's own socLowThreshold advisory band —
	// this one fires a notification, not a query response.
	criticalSOCThreshold = 15.0
)

// PollerHealth is the spec.md §3 PollerHealth snapshot, read
// synchronously by the health RPC (spec.md §4.4).
type PollerHealth struct {
	Vendor             config.Vendor
	LastAttemptAt      time.Time
	LastSuccessAt      time.Time
	ConsecutiveFailures int
	RequestsThisHour   int
	RateLimitMax       int
	LastError          string
	IsHealthy          bool
}

// Poller runs one vendor's fetch-normalize-persist loop. Grounded on the
// teacher's queue.Worker lifecycle (Start/Stop/Health, stopCh + WaitGroup),
// adapted from claim-a-session-from-a-queue to poll-a-vendor-on-a-timer.
type Poller struct {
	vendor   config.Vendor
	client   VendorClient
	telemetry *store.TelemetryStore
	interval time.Duration
	bucket   *tokenBucket
	logger   *slog.Logger
	alerts   *slack.Service

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu                  sync.RWMutex
	lastAttempt         time.Time
	lastSuccess         time.Time
	consecutiveFailures int
	lastError           string
}

// NewPoller builds a Poller for one vendor.
func NewPoller(vendor config.Vendor, client VendorClient, telemetry *store.TelemetryStore, poll config.PollConfig, rateLimit config.RateLimitConfig, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		vendor:    vendor,
		client:    client,
		telemetry: telemetry,
		interval:  poll.Interval,
		bucket:    newTokenBucket(rateLimit.PerHour, time.Now()),
		logger:    logger.With("vendor", vendor),
		stopCh:    make(chan struct{}),
	}
}

// SetAlertNotifier wires an optional Slack notifier for critical
// telemetry conditions. A nil argument (the default) disables
// alerting; *slack.Service is itself nil-safe, so this is equivalent
// to leaving alerting off.
func (p *Poller) SetAlertNotifier(s *slack.Service) {
	p.alerts = s
}

// Start begins the poll loop in a goroutine.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
}

// Stop signals the poller to stop and waits for the loop to exit. Safe
// to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()
	p.logger.Info("telemetry poller started", "interval", p.interval)

	for {
		if !p.sleep(ctx, p.interval) {
			p.logger.Info("telemetry poller stopped")
			return
		}
		p.tick(ctx)
	}
}

// tick runs a single fetch/persist attempt, matching spec.md §4.4's
// loop body.
func (p *Poller) tick(ctx context.Context) {
	ok, _, waitFor := p.bucket.take()
	if !ok {
		p.logger.Warn("rate limit exhausted, sleeping to hour boundary", "wait", waitFor)
		p.sleep(ctx, waitFor)
		return
	}

	p.mu.Lock()
	p.lastAttempt = time.Now()
	p.mu.Unlock()

	sample, err := p.client.FetchLatest(ctx)
	if err != nil {
		p.recordFailure(ctx, err)
		return
	}
	p.recordSuccess()

	if werr := p.telemetry.Insert(ctx, p.vendor, toStoreSample(sample)); werr != nil {
		p.logger.Error("failed to persist telemetry sample", "error", werr)
	}

	p.checkAlerts(ctx, sample)
}

// checkAlerts notifies the operator when a just-fetched sample crosses
// a critical threshold. A no-op when no notifier is wired.
func (p *Poller) checkAlerts(ctx context.Context, sample Sample) {
	if p.alerts == nil || sample.SOC == nil {
		return
	}
	if *sample.SOC < criticalSOCThreshold {
		p.alerts.NotifyAlert(ctx, slack.AlertInput{
			Vendor:      p.vendor,
			Condition:   "low_soc",
			Message:     fmt.Sprintf("SOC is %.1f%%, below the %.0f%% critical floor.", *sample.SOC, criticalSOCThreshold),
			Fingerprint: fmt.Sprintf("%s:low_soc", p.vendor),
			Severity:    "critical",
		})
	}
}

func (p *Poller) recordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSuccess = time.Now()
	p.consecutiveFailures = 0
	p.lastError = ""
}

func (p *Poller) recordFailure(ctx context.Context, err error) {
	p.mu.Lock()
	p.consecutiveFailures++
	p.lastError = err.Error()
	failures := p.consecutiveFailures
	p.mu.Unlock()

	if errors.Is(err, ErrRateLimited) {
		wait := p.bucket.reconcile429()
		p.logger.Warn("vendor rate limited", "wait", wait)
		p.sleep(ctx, wait)
		return
	}

	backoff := backoffFor(failures)
	p.logger.Error("telemetry fetch failed", "error", err, "consecutive_failures", failures, "backoff", backoff)
	p.sleep(ctx, backoff)
}

// backoffFor computes min(maxBackoff, base*2^failures) with full jitter,
// matching spec.md §4.4's backoff formula.
func backoffFor(failures int) time.Duration {
	exp := baseBackoff * time.Duration(1<<uint(min(failures, 20)))
	if exp > maxBackoff || exp <= 0 {
		exp = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(exp)))
	return jitter
}

// sleep waits for d or until stop/ctx cancellation, reporting whether
// the poller should keep running.
func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Millisecond
	}
	select {
	case <-p.stopCh:
		return false
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Health returns the current health snapshot (spec.md §4.4: "Health is
// exposed synchronously").
func (p *Poller) Health() PollerHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()

	staleWindow := time.Duration(defaultStaleMultiple) * p.interval
	healthy := p.consecutiveFailures < defaultFailureThreshold &&
		!p.lastSuccess.IsZero() && time.Since(p.lastSuccess) < staleWindow

	perHour := p.bucket.perHour
	remaining := p.bucket.remaining()

	return PollerHealth{
		Vendor:              p.vendor,
		LastAttemptAt:       p.lastAttempt,
		LastSuccessAt:       p.lastSuccess,
		ConsecutiveFailures: p.consecutiveFailures,
		RequestsThisHour:    perHour - remaining,
		RateLimitMax:        perHour,
		LastError:           p.lastError,
		IsHealthy:           healthy,
	}
}
