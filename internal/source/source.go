package source

import (
	"context"

	"app_radar/internal/domain"
)

// Fetcher looks up a single app on one upstream provider. New providers are
// added by implementing this interface.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, term string) (*domain.FetchResult, error)
}
