package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craigmcc/cityteam-guests-client/pkg/domain/checkin"
)

func TestCounters(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.CheckinEvent(ctx, checkin.Event{Op: checkin.OpAssign})
	m.CheckinEvent(ctx, checkin.Event{Op: checkin.OpAssign})
	m.CheckinEvent(ctx, checkin.Event{Op: checkin.OpDeassign})
	m.Update("callback")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.mutations.WithLabelValues(checkin.OpAssign)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues(checkin.OpDeassign)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.updates.WithLabelValues("callback")))

	m.ObserveRequest("assign", 200, 30*time.Millisecond)
	m.ObserveRequest("assign", 0, time.Second)
	assert.Equal(t, 2, testutil.CollectAndCount(m.requests))
}

func TestMetricsEndpoint(t *testing.T) {
	m := New()
	m.Failure("duplicate")

	srv := httptest.NewServer(m.Router(nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `cityteam_bot_failures_total{kind="duplicate"} 1`))
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		want       healthResponse
	}{
		{
			name:       "healthy",
			checks:     map[string]Check{"postgres": func(context.Context) error { return nil }},
			wantStatus: http.StatusOK,
			want:       healthResponse{Status: "ok", Checks: map[string]string{"postgres": "ok"}},
		},
		{
			name: "redis down",
			checks: map[string]Check{
				"postgres": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			want: healthResponse{Status: "degraded", Checks: map[string]string{
				"postgres": "ok", "redis": "connection refused",
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			New().Router(tt.checks).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got healthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
