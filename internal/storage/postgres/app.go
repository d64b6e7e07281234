package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"app_radar/internal/domain"
)

const appColumns = `id, identifier, name, platform, developer, category, url, first_seen_at, last_updated_at`

type AppStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewAppStore(db *sqlx.DB) *AppStore {
	return &AppStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Upsert inserts the app or refreshes its descriptive fields, keyed on
// identifier. first_seen_at is written only by the insert branch.
func (s *AppStore) Upsert(ctx context.Context, app *domain.App) (*domain.App, error) {
	query := `
		INSERT INTO apps (
			identifier, name, platform, developer, category, url, first_seen_at, last_updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $7
		)
		ON CONFLICT (identifier) DO UPDATE SET
			name = EXCLUDED.name,
			platform = EXCLUDED.platform,
			developer = EXCLUDED.developer,
			category = EXCLUDED.category,
			url = EXCLUDED.url,
			last_updated_at = GREATEST(apps.last_updated_at, EXCLUDED.last_updated_at)
		RETURNING ` + appColumns

	platform := app.Platform
	if platform == "" {
		platform = domain.PlatformIOS
	}

	var stored domain.App
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &stored, query,
		app.Identifier,
		app.Name,
		platform,
		app.Developer,
		app.Category,
		app.URL,
		s.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: upsert app %s: %w", domain.ErrStorage, app.Identifier, err)
	}

	return &stored, nil
}

func (s *AppStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.App, error) {
	var app domain.App
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &app,
		`SELECT `+appColumns+` FROM apps WHERE identifier = $1`,
		identifier,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get app %s: %w", domain.ErrStorage, identifier, err)
	}
	return &app, nil
}

// Delete removes the app; its metrics go with it through the foreign key.
func (s *AppStore) Delete(ctx context.Context, identifier string) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM apps WHERE identifier = $1",
		identifier,
	)
	if err != nil {
		return fmt.Errorf("%w: delete app %s: %w", domain.ErrStorage, identifier, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete app %s: %w", domain.ErrStorage, identifier, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, identifier)
	}
	return nil
}

func (s *AppStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrStorage, err)
	}
	return nil
}
