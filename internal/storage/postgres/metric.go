package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"app_radar/internal/domain"
)

type MetricStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewMetricStore(db *sqlx.DB) *MetricStore {
	return &MetricStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Append writes one metric row. Rows are never updated afterwards.
func (s *MetricStore) Append(ctx context.Context, appID int64, m *domain.Metric) (*domain.Metric, error) {
	query := `
		INSERT INTO metrics (
			app_id, timestamp, rating, rating_count, version, source, confidence,
			estimated_dau, estimated_mau, rank_overall, rank_category
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING id`

	stored := *m
	stored.AppID = appID
	if stored.Timestamp.IsZero() {
		stored.Timestamp = s.now()
	}

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		stored.AppID,
		stored.Timestamp,
		stored.Rating,
		stored.RatingCount,
		stored.Version,
		stored.Source,
		stored.Confidence,
		stored.EstimatedDAU,
		stored.EstimatedMAU,
		stored.RankOverall,
		stored.RankCategory,
	).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: append metric for app %d: %w", domain.ErrStorage, appID, err)
	}

	return &stored, nil
}

// History returns the app's metrics in append order. limit <= 0 means all.
func (s *MetricStore) History(ctx context.Context, identifier string, limit int) ([]domain.Metric, error) {
	query := `
		SELECT m.id, m.app_id, m.timestamp, m.rating, m.rating_count, m.version, m.source,
			m.confidence, m.estimated_dau, m.estimated_mau, m.rank_overall, m.rank_category
		FROM metrics m
		INNER JOIN apps a ON a.id = m.app_id
		WHERE a.identifier = $1
		ORDER BY m.id
		LIMIT $2`

	var lim *int
	if limit > 0 {
		lim = &limit
	}

	metrics := []domain.Metric{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &metrics, query, identifier, lim); err != nil {
		return nil, fmt.Errorf("%w: history for %s: %w", domain.ErrStorage, identifier, err)
	}
	return metrics, nil
}
