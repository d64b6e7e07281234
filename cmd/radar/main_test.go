package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"app_radar/internal/config"
	"app_radar/internal/domain"
)

func TestSplitTargets(t *testing.T) {
	assert.Equal(t, []string{"Lemon8", "Notion Calendar", "Gas"}, splitTargets(" Lemon8, Notion Calendar ,,Gas,"))
	assert.Nil(t, splitTargets(" , "))
}

func TestOpenStores_DryRunUsesMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := openStores(context.Background(), &config.Config{}, true, logger)
	require.NoError(t, err)
	defer st.close()

	app, err := st.apps.Upsert(context.Background(), &domain.App{Identifier: "1", Name: "Gas"})
	require.NoError(t, err)
	_, err = st.metrics.Append(context.Background(), app.ID, &domain.Metric{RatingCount: 3})
	assert.NoError(t, err)
}
