package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"app_radar/internal/digest"
	"app_radar/internal/domain"
	"app_radar/internal/metrics"
)

// RadarService runs one full cycle: collect the targets, build the digest and
// hand it to the publisher.
type RadarService struct {
	collector Collector
	publisher Publisher
	targets   []string
	topN      int
	logger    *slog.Logger
}

// NewRadarService wires a run. publisher may be nil, in which case the digest
// is built but not delivered.
func NewRadarService(collector Collector, publisher Publisher, targets []string, topN int, logger *slog.Logger) *RadarService {
	return &RadarService{
		collector: collector,
		publisher: publisher,
		targets:   targets,
		topN:      topN,
		logger:    logger,
	}
}

// Run executes a cycle over the configured targets. It satisfies the
// scheduler's Runner.
func (s *RadarService) Run(ctx context.Context) (*domain.RunStats, error) {
	stats, _, err := s.RunTargets(ctx, s.targets)
	return stats, err
}

// RunTargets executes a cycle over an explicit target list and also returns
// the digest that was built. The report is nil when collection escalated.
func (s *RadarService) RunTargets(ctx context.Context, targets []string) (*domain.RunStats, *domain.DigestReport, error) {
	startTime := time.Now()

	result, err := s.collector.Collect(ctx, targets)
	if err != nil {
		stats := &domain.RunStats{Total: len(targets), Duration: time.Since(startTime)}
		if result != nil {
			stats.Failed = len(result.Failures)
			stats.Failures = result.Failures
		}
		return stats, nil, fmt.Errorf("collect: %w", err)
	}

	report := digest.Synthesize(result.Snapshots, s.topN)
	report.Total = result.Total
	report.Succeeded = result.Succeeded()
	report.Failed = len(result.Failures)

	stats := &domain.RunStats{
		Total:     result.Total,
		Succeeded: result.Succeeded(),
		Failed:    len(result.Failures),
		Failures:  result.Failures,
	}

	switch {
	case s.publisher == nil:
		s.logger.Info("publishing disabled, digest not sent")
	case stats.Succeeded == 0:
		s.logger.Warn("nothing collected, digest not sent")
	default:
		stats.PublishErr = s.publisher.Publish(ctx, report)
		metrics.ObservePublish(stats.PublishErr)
		if stats.PublishErr != nil {
			s.logger.Error("failed to publish digest", "error", stats.PublishErr)
		} else {
			stats.Published = true
		}
	}

	stats.Duration = time.Since(startTime)
	s.logger.Info("run completed",
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"total", stats.Total,
		"published", stats.Published,
		"duration", stats.Duration,
	)

	return stats, report, nil
}
