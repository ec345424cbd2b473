package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func TestHealthz(t *testing.T) {
	cases := []struct {
		name   string
		checks []Check
		status int
		want   map[string]string
	}{
		{"no checks", nil, http.StatusOK, map[string]string{}},
		{"all healthy", []Check{{"postgres", ok}, {"redis", ok}}, http.StatusOK,
			map[string]string{"postgres": "ok", "redis": "ok"}},
		{"redis down", []Check{
			{"postgres", ok},
			{"redis", func(context.Context) error { return errors.New("connection refused") }},
		}, http.StatusServiceUnavailable,
			map[string]string{"postgres": "ok", "redis": "connection refused"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Handler(tc.checks...).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tc.status, rr.Code)
			var got map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
