package slack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/commandcenter/commandcenter/pkg/config"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// AlertInput describes one telemetry threshold condition to notify an
// operator about (spec.md §4.4 poller, supplemented with operator-
// facing alerting beyond spec.md's own RPC surface). Fingerprint
// identifies the condition (e.g. "solark:low_soc") so NotifyAlert can
// avoid reposting the same condition on every poll tick.
type AlertInput struct {
	Vendor      config.Vendor
	Condition   string
	Message     string
	Fingerprint string
	Severity    string // "warning" or "critical"
}

// Service handles Slack notification delivery.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// dailyThreadMarker identifies the root message of a given day's alert
// thread. Every alert fired on the same calendar day threads under the
// first one posted, so a bad night of low-SOC warnings doesn't flood
// the channel with top-level messages.
func dailyThreadMarker(now time.Time) string {
	return fmt.Sprintf("daily-alerts:%s", now.UTC().Format("2006-01-02"))
}

// NotifyAlert posts a telemetry threshold alert to the configured
// channel, skipping the post if a message with the same fingerprint
// was already sent in the last 24 hours (same dedup window as
// Client.FindMessageByFingerprint). Alerts that aren't duplicates are
// threaded under the day's first alert, found by searching history for
// dailyThreadMarker; if no such root exists yet, this alert becomes it.
// Fail-open throughout: errors are logged, never returned, so a Slack
// outage never blocks the poll loop.
func (s *Service) NotifyAlert(ctx context.Context, input AlertInput) {
	if s == nil {
		return
	}

	existing, err := s.client.FindMessageByFingerprint(ctx, input.Fingerprint)
	if err != nil {
		s.logger.Warn("failed to check for duplicate alert",
			"vendor", input.Vendor, "condition", input.Condition, "error", err)
	}
	if existing != "" {
		return
	}

	marker := dailyThreadMarker(time.Now())
	threadTS, err := s.client.FindMessageByFingerprint(ctx, marker)
	if err != nil {
		s.logger.Warn("failed to find today's alert thread root",
			"vendor", input.Vendor, "condition", input.Condition, "error", err)
	}

	stampMarker := ""
	if threadTS == "" {
		stampMarker = marker
	}

	blocks := BuildAlertMessage(input, s.dashboardURL, stampMarker)
	if err := s.client.PostMessage(ctx, blocks, threadTS, 5*time.Second); err != nil {
		s.logger.Error("failed to send Slack alert",
			"vendor", input.Vendor, "condition", input.Condition, "error", err)
	}
}
