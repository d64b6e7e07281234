// Package memory is a process-local entity store. It satisfies the same
// contracts as the postgres package but keeps nothing across restarts, so it
// is only wired for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"app_radar/internal/domain"
)

type Store struct {
	mu         sync.RWMutex
	apps       map[string]*domain.App
	identByID  map[int64]string
	metrics    map[int64][]domain.Metric
	nextAppID  int64
	nextMetric int64
	now        func() time.Time
}

func New() *Store {
	return &Store{
		apps:      make(map[string]*domain.App),
		identByID: make(map[int64]string),
		metrics:   make(map[int64][]domain.Metric),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Upsert(_ context.Context, app *domain.App) (*domain.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	platform := app.Platform
	if platform == "" {
		platform = domain.PlatformIOS
	}

	existing, ok := s.apps[app.Identifier]
	if !ok {
		s.nextAppID++
		existing = &domain.App{
			ID:          s.nextAppID,
			Identifier:  app.Identifier,
			FirstSeenAt: now,
		}
		s.apps[app.Identifier] = existing
		s.identByID[existing.ID] = app.Identifier
	}

	existing.Name = app.Name
	existing.Platform = platform
	existing.Developer = app.Developer
	existing.Category = app.Category
	existing.URL = app.URL
	if now.After(existing.LastUpdatedAt) {
		existing.LastUpdatedAt = now
	}

	out := *existing
	return &out, nil
}

func (s *Store) GetByIdentifier(_ context.Context, identifier string) (*domain.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[identifier]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, identifier)
	}
	out := *app
	return &out, nil
}

func (s *Store) Delete(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[identifier]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, identifier)
	}
	delete(s.metrics, app.ID)
	delete(s.identByID, app.ID)
	delete(s.apps, identifier)
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Append(_ context.Context, appID int64, m *domain.Metric) (*domain.Metric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identByID[appID]; !ok {
		return nil, fmt.Errorf("%w: append metric: unknown app %d", domain.ErrStorage, appID)
	}

	s.nextMetric++
	stored := *m
	stored.ID = s.nextMetric
	stored.AppID = appID
	if stored.Timestamp.IsZero() {
		stored.Timestamp = s.now()
	}
	s.metrics[appID] = append(s.metrics[appID], stored)

	out := stored
	return &out, nil
}

func (s *Store) History(_ context.Context, identifier string, limit int) ([]domain.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[identifier]
	if !ok {
		return []domain.Metric{}, nil
	}

	history := s.metrics[app.ID]
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}
	out := make([]domain.Metric, len(history))
	copy(out, history)
	return out, nil
}

// WithTransaction runs fn directly. Writes are applied immediately and are
// not undone if fn fails.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
