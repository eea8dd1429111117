// Package cleanup runs the background retention-purge job: aging out
// old telemetry samples and agent-execution records so the database
// doesn't grow unbounded (supplemented beyond spec.md §6, which leaves
// history retention unspecified).
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/commandcenter/commandcenter/pkg/store"
)

// Service periodically purges telemetry samples and agent-execution
// records past their retention window. All operations are idempotent
// and safe to run from multiple processes against the same database.
type Service struct {
	config     config.RetentionConfig
	telemetry  *store.TelemetryStore
	executions *store.ExecutionStore
	logger     *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg config.RetentionConfig, telemetry *store.TelemetryStore, executions *store.ExecutionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config:     cfg,
		telemetry:  telemetry,
		executions: executions,
		logger:     logger.With("component", "cleanup"),
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info("cleanup service started",
		"telemetry_retention_days", s.config.TelemetryRetentionDays,
		"execution_retention_days", s.config.ExecutionRetentionDays,
		"interval", s.config.Interval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeTelemetry(ctx)
	s.purgeExecutions(ctx)
}

func (s *Service) purgeTelemetry(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.TelemetryRetentionDays)
	for _, vendor := range []config.Vendor{config.VendorSolArk, config.VendorVictron} {
		count, err := s.telemetry.DeleteOlderThan(ctx, vendor, cutoff)
		if err != nil {
			s.logger.Error("telemetry retention purge failed", "vendor", vendor, "error", err)
			continue
		}
		if count > 0 {
			s.logger.Info("purged old telemetry samples", "vendor", vendor, "count", count)
		}
	}
}

func (s *Service) purgeExecutions(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.ExecutionRetentionDays)
	count, err := s.executions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("agent execution retention purge failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("purged old agent executions", "count", count)
	}
}
