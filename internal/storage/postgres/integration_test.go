//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"app_radar/internal/domain"
	"app_radar/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
	connStr   string
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
	s.connStr = connStr

	s.Require().NoError(Migrate(connStr))
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM metrics")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM apps")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestMigrate_Idempotent() {
	s.NoError(Migrate(s.connStr))
}

func (s *PostgresIntegrationSuite) TestMigrate_ReleasesConnection() {
	s.Require().NoError(Migrate(s.connStr))

	s.Eventually(func() bool {
		var n int
		err := s.db.GetContext(s.ctx, &n, `
			SELECT count(*) FROM pg_stat_activity
			WHERE datname = current_database()
				AND pid <> pg_backend_pid()
				AND (query ILIKE '%pg_advisory%' OR query ILIKE '%schema_migrations%')`)
		return err == nil && n == 0
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *PostgresIntegrationSuite) TestAppStore_Upsert_Insert() {
	store := NewAppStore(s.db)

	app, err := store.Upsert(s.ctx, &domain.App{
		Identifier: "1232780281",
		Name:       "Notion",
		Platform:   domain.PlatformIOS,
		Developer:  "Notion Labs",
		Category:   "Productivity",
		URL:        "https://apps.apple.com/notion",
	})
	s.NoError(err)
	s.Greater(app.ID, int64(0))
	s.False(app.FirstSeenAt.IsZero())
	s.Equal(app.FirstSeenAt, app.LastUpdatedAt)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM apps WHERE identifier = $1", "1232780281")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestAppStore_Upsert_IdempotentKeepsFirstSeen() {
	store := NewAppStore(s.db)
	t0 := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Microsecond)
	clock := t0
	store.now = func() time.Time { return clock }

	first, err := store.Upsert(s.ctx, &domain.App{Identifier: "100", Name: "Poe", Developer: "Quora"})
	s.Require().NoError(err)

	for i := 1; i <= 3; i++ {
		clock = t0.Add(time.Duration(i) * time.Hour)
		app, err := store.Upsert(s.ctx, &domain.App{Identifier: "100", Name: "Poe AI", Developer: "Quora, Inc."})
		s.Require().NoError(err)
		s.Equal(first.ID, app.ID)
		s.WithinDuration(t0, app.FirstSeenAt, time.Millisecond)
		s.WithinDuration(clock, app.LastUpdatedAt, time.Millisecond)
		s.Equal("Poe AI", app.Name)
		s.Equal("Quora, Inc.", app.Developer)
	}

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM apps"))
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestAppStore_Upsert_SameNameDifferentIdentifiers() {
	store := NewAppStore(s.db)

	a, err := store.Upsert(s.ctx, &domain.App{Identifier: "1", Name: "Linear"})
	s.NoError(err)
	b, err := store.Upsert(s.ctx, &domain.App{Identifier: "2", Name: "Linear"})
	s.NoError(err)
	s.NotEqual(a.ID, b.ID)
}

func (s *PostgresIntegrationSuite) TestAppStore_Upsert_Concurrent() {
	store := NewAppStore(s.db)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Upsert(s.ctx, &domain.App{Identifier: "race", Name: "Threads"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM apps WHERE identifier = 'race'"))
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestMetricStore_AppendAndHistory() {
	apps := NewAppStore(s.db)
	metrics := NewMetricStore(s.db)

	app, err := apps.Upsert(s.ctx, &domain.App{Identifier: "200", Name: "CapCut"})
	s.Require().NoError(err)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 4; i++ {
		_, err := metrics.Append(s.ctx, app.ID, &domain.Metric{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Rating:      utils.Ptr(4.5 + float64(i)/10),
			RatingCount: int64(1000 * (i + 1)),
			Version:     "1.0",
			Source:      "itunes",
			Confidence:  1.0,
		})
		s.Require().NoError(err)
	}

	history, err := metrics.History(s.ctx, "200", 0)
	s.NoError(err)
	s.Len(history, 4)
	for i, m := range history {
		s.Equal(app.ID, m.AppID)
		s.Equal(int64(1000*(i+1)), m.RatingCount)
		s.Nil(m.EstimatedDAU)
		s.Nil(m.RankOverall)
	}

	limited, err := metrics.History(s.ctx, "200", 2)
	s.NoError(err)
	s.Len(limited, 2)
}

func (s *PostgresIntegrationSuite) TestAppStore_DeleteCascadesMetrics() {
	apps := NewAppStore(s.db)
	metrics := NewMetricStore(s.db)

	app, err := apps.Upsert(s.ctx, &domain.App{Identifier: "300", Name: "Temu"})
	s.Require().NoError(err)
	_, err = metrics.Append(s.ctx, app.ID, &domain.Metric{Source: "itunes", Confidence: 1})
	s.Require().NoError(err)

	s.NoError(apps.Delete(s.ctx, "300"))

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM metrics WHERE app_id = $1", app.ID))
	s.Equal(0, count)

	_, err = apps.GetByIdentifier(s.ctx, "300")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	apps := NewAppStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := apps.Upsert(ctx, &domain.App{Identifier: "777", Name: "Should Rollback"}); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	_, err = apps.GetByIdentifier(s.ctx, "777")
	s.ErrorIs(err, domain.ErrNotFound)
}
