package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"app_radar/internal/config"
	"app_radar/internal/domain"
	"app_radar/internal/metrics"
)

// CollectService fetches every target, persists an App/Metric pair for each
// success and reports failures without stopping the batch.
type CollectService struct {
	source    Source
	apps      AppStore
	metrics   MetricStore
	txManager TransactionManager
	limiter   *rate.Limiter
	workers   int
	logger    *slog.Logger
}

func NewCollectService(
	source Source,
	apps AppStore,
	metrics MetricStore,
	txManager TransactionManager,
	logger *slog.Logger,
	cfg config.CollectConfig,
) *CollectService {
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	return &CollectService{
		source:    source,
		apps:      apps,
		metrics:   metrics,
		txManager: txManager,
		limiter:   rate.NewLimiter(limit, 1),
		workers:   workers,
		logger:    logger.With("source", source.ID()),
	}
}

// Collect processes targets on a bounded pool. Each dispatch waits on the
// limiter, so consecutive provider calls for different targets are at least
// MinInterval apart. Snapshots come back in target order.
func (s *CollectService) Collect(ctx context.Context, targets []string) (*domain.CollectResult, error) {
	startTime := time.Now()
	s.logger.Info("starting collection",
		"targets", len(targets),
		"workers", s.workers,
	)

	slots := make([]*domain.Snapshot, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	g.SetLimit(s.workers)

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				errs[i] = fmt.Errorf("rate limit wait: %w", err)
				return nil
			}

			snap, err := s.collectOne(ctx, target)
			metrics.ObserveTarget(err)
			if err != nil {
				errs[i] = err
				s.logger.Warn("target failed",
					"position", i+1,
					"target", target,
					"error", err,
				)
				return nil
			}

			slots[i] = snap
			s.logger.Info("collected app",
				"position", i+1,
				"target", target,
				"identifier", snap.App.Identifier,
				"rating", snap.RatingValue(),
				"rating_count", snap.Metric.RatingCount,
			)
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.CollectResult{
		Total:     len(targets),
		Snapshots: make([]domain.Snapshot, 0, len(targets)),
	}
	for i, target := range targets {
		if errs[i] != nil {
			result.Failures = append(result.Failures, domain.Failure{
				Position: i + 1,
				Target:   target,
				Err:      errs[i],
			})
			continue
		}
		result.Snapshots = append(result.Snapshots, *slots[i])
	}
	result.Duration = time.Since(startTime)

	metrics.ObserveRun(result.Succeeded(), result.Duration)
	s.logger.Info("collection completed",
		"succeeded", result.Succeeded(),
		"failed", len(result.Failures),
		"total", result.Total,
		"duration", result.Duration,
	)

	if err := escalation(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

func (s *CollectService) collectOne(ctx context.Context, target string) (*domain.Snapshot, error) {
	res, err := s.source.Fetch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	var snap domain.Snapshot
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		app, err := s.apps.Upsert(txCtx, res.App())
		if err != nil {
			return fmt.Errorf("upsert app: %w", err)
		}

		metric, err := s.metrics.Append(txCtx, app.ID, res.Metric())
		if err != nil {
			return fmt.Errorf("append metric: %w", err)
		}

		snap = domain.Snapshot{Target: target, App: *app, Metric: *metric}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &snap, nil
}

// escalation decides whether a batch outcome should fail the whole run:
// only when nothing succeeded and the store was the cause every time, or the
// run was cancelled.
func escalation(ctx context.Context, result *domain.CollectResult) error {
	if result.Succeeded() > 0 || len(result.Failures) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("collection interrupted: %w", err)
	}
	for _, f := range result.Failures {
		if !errors.Is(f.Err, domain.ErrStorage) {
			return nil
		}
	}
	return fmt.Errorf("all %d targets failed on storage: %w", len(result.Failures), domain.ErrStorage)
}
