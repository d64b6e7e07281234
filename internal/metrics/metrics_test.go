package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"app_radar/internal/domain"
)

func TestOutcome(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"nil":       {nil, "ok"},
		"not found": {fmt.Errorf("%w: x", domain.ErrNotFound), "not_found"},
		"transport": {fmt.Errorf("after 3 attempts: %w", fmt.Errorf("%w: boom", domain.ErrTransport)), "transport"},
		"parse":     {domain.ErrParse, "parse"},
		"storage":   {fmt.Errorf("%w: insert: %w", domain.ErrStorage, errors.New("conn refused")), "storage"},
		"other":     {errors.New("?"), "other"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Outcome(tc.err))
		})
	}
}

func TestObserveFetchAttempt(t *testing.T) {
	before := testutil.ToFloat64(fetchAttempts.WithLabelValues("test", "transport"))
	ObserveFetchAttempt("test", domain.ErrTransport)
	ObserveFetchAttempt("test", domain.ErrTransport)
	after := testutil.ToFloat64(fetchAttempts.WithLabelValues("test", "transport"))
	assert.Equal(t, before+2, after)
}

func TestHandlerServesRegistry(t *testing.T) {
	ObserveTarget(nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app_radar_collect_targets_total")
}
