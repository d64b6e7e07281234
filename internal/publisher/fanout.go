package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"app_radar/internal/domain"
)

// Target is a single digest destination.
type Target interface {
	Name() string
	Publish(ctx context.Context, report *domain.DigestReport) error
	Close() error
}

// Fanout delivers a digest to every target. One target failing does not stop
// the others; the errors are joined.
type Fanout struct {
	targets []Target
	logger  *slog.Logger
}

func NewFanout(logger *slog.Logger, targets ...Target) *Fanout {
	return &Fanout{targets: targets, logger: logger}
}

func (f *Fanout) Len() int {
	return len(f.targets)
}

func (f *Fanout) Publish(ctx context.Context, report *domain.DigestReport) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.Publish(ctx, report); err != nil {
			f.logger.Warn("publish failed", "target", t.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, t := range f.targets {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", t.Name(), err))
		}
	}
	return errors.Join(errs...)
}
