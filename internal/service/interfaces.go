package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"app_radar/internal/domain"
)

type Source interface {
	ID() string
	Fetch(ctx context.Context, term string) (*domain.FetchResult, error)
}

type AppStore interface {
	Upsert(ctx context.Context, app *domain.App) (*domain.App, error)
}

type MetricStore interface {
	Append(ctx context.Context, appID int64, metric *domain.Metric) (*domain.Metric, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Collector interface {
	Collect(ctx context.Context, targets []string) (*domain.CollectResult, error)
}

type Publisher interface {
	Publish(ctx context.Context, report *domain.DigestReport) error
	Close() error
}
